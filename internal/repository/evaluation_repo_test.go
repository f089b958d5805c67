package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wenzhi-edu/report-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Assignment{}, &models.Evaluation{}))

	return db
}

func TestEvaluationRepositoryGetByEssayID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)

	stored := models.Evaluation{
		EssayID:      11,
		AssignmentID: 7,
		StudentName:  "张三",
		Payload:      []byte(`{"summary": "整体表现良好"}`),
		ReviewStatus: models.ReviewStatusAIGenerated,
	}
	require.NoError(t, db.Create(&stored).Error)

	got, err := repo.GetByEssayID(context.Background(), 11)
	require.NoError(t, err)
	require.Equal(t, "张三", got.StudentName)
	require.Equal(t, uint(7), got.AssignmentID)

	_, err = repo.GetByEssayID(context.Background(), 999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEvaluationRepositoryListByAssignmentID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)

	rows := []models.Evaluation{
		{EssayID: 1, AssignmentID: 7, StudentName: "王五", StudentNo: "20230030", Payload: []byte(`{}`)},
		{EssayID: 2, AssignmentID: 7, StudentName: "张三", StudentNo: "20230012", Payload: []byte(`{}`)},
		{EssayID: 3, AssignmentID: 8, StudentName: "别班学生", StudentNo: "20230001", Payload: []byte(`{}`)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	got, err := repo.ListByAssignmentID(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by student number, so batch output stays deterministic.
	require.Equal(t, "张三", got[0].StudentName)
	require.Equal(t, "王五", got[1].StudentName)
}

func TestEvaluationRepositoryIsReviewed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)

	now := time.Now()
	reviewer := uint(5)
	rows := []models.Evaluation{
		{EssayID: 1, AssignmentID: 7, Payload: []byte(`{}`), ReviewStatus: models.ReviewStatusAIGenerated},
		{EssayID: 2, AssignmentID: 7, Payload: []byte(`{}`), ReviewStatus: models.ReviewStatusTeacherReviewed, ReviewedBy: &reviewer, ReviewedAt: &now},
		{EssayID: 3, AssignmentID: 7, Payload: []byte(`{}`), ReviewStatus: models.ReviewStatusFinalized},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	reviewed, err := repo.IsReviewed(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, reviewed)

	reviewed, err = repo.IsReviewed(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, reviewed)

	reviewed, err = repo.IsReviewed(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, reviewed)
}

func TestAssignmentRepositoryGetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)

	stored := models.Assignment{Title: "我的乐园", ClassName: "五年级三班", TeacherName: "李老师"}
	require.NoError(t, db.Create(&stored).Error)

	got, err := repo.GetByID(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Equal(t, "我的乐园", got.Title)

	_, err = repo.GetByID(context.Background(), 999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
