package writer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const connectionsFormat = "USRCONNID;ABONID;SITENAME;RESID;TMID;BEGDATE;STATUS;SHARED;REMARK"

func TestParseSiteNameMap(t *testing.T) {
	data := "USRCONNID;ABONID;SITENAME;RESID;TMID;BEGDATE;STATUS;SHARED;REMARK;\n" +
		"1;10;lc100;401;1;01.02.2024;1;0;3;\n" +
		"2;10;i100;402;7;01.02.2024;1;0;\"a;b\";\n" +
		"5;10;i100_1;402;7;01.02.2024;1;0;12;\n"

	result, err := ParseSiteNameMap(strings.NewReader(data), connectionsFormat)

	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"lc100": 1, "i100": 2, "i100_1": 5}, result)
}

func TestParseSiteNameMap_NoHeader(t *testing.T) {
	result, err := ParseSiteNameMap(strings.NewReader("9;10;tv100;407;7;01.02.2024;1;0;3;\n"), connectionsFormat)

	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"tv100": 9}, result)
}

func TestParseSiteNameMap_BadID(t *testing.T) {
	_, err := ParseSiteNameMap(strings.NewReader("1;10;lc100;\nx;10;i100;\n"), connectionsFormat)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseSiteNameMap_BadFormat(t *testing.T) {
	_, err := ParseSiteNameMap(strings.NewReader(""), "A;B")

	assert.Error(t, err)
}

func TestReadSiteNameMap_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.csv")
	require.NoError(t, os.WriteFile(path, []byte("3;10;npl100;408;7;01.02.2024;1;0;3;\n"), 0o644))

	result, err := ReadSiteNameMap(path, connectionsFormat)

	require.NoError(t, err)
	assert.Equal(t, int64(3), result["npl100"])

	_, err = ReadSiteNameMap(filepath.Join(t.TempDir(), "missing.csv"), connectionsFormat)
	assert.Error(t, err)
}
