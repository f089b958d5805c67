package render

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "张三", "张三"},
		{"illegal characters", `我的<乐园>:作文?`, "我的_乐园_作文"},
		{"path separators", `a/b\c`, "a_b_c"},
		{"spaces", "五年级 三班", "五年级_三班"},
		{"collapses runs", "a  <>  b", "a_b"},
		{"trims edges", " 张三 ", "张三"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SanitizeFilename(tc.in))
		})
	}
}

func TestReportFilename(t *testing.T) {
	got := ReportFilename("张三", "我的乐园", "2025-04-01")
	require.Equal(t, "张三_我的乐园_2025-04-01.docx", got)

	got = ReportFilename("张/三", "期中 测验", "2025-04-01")
	require.Equal(t, "张_三_期中_测验_2025-04-01.docx", got)
}

func TestWriteArchive(t *testing.T) {
	entries := []ArchiveEntry{
		{Name: "甲.docx", Data: []byte("first")},
		{Name: "乙.docx", Data: []byte("second")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, entries))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	// Entry order is preserved.
	require.Equal(t, "甲.docx", zr.File[0].Name)
	require.Equal(t, "乙.docx", zr.File[1].Name)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), data)
}
