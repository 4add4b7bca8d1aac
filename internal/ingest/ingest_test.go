package ingest

import (
	"bytes"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/sqp-cli/internal/model"
	"github.com/sells-group/sqp-cli/internal/schema"
)

func TestLoad_CSV(t *testing.T) {
	data := []byte("Search Query,Impressions\nbento box,1000\nlunch box,500\n")

	tbl, err := Load(File{Name: "report.csv", Data: data})
	require.NoError(t, err)

	assert.Equal(t, []string{"Search Query", "Impressions"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "bento box", tbl.Rows[0]["Search Query"])
	assert.Equal(t, "500", tbl.Rows[1]["Impressions"])
}

func TestLoad_CSVSkipsMetadataLine(t *testing.T) {
	data := []byte("Brand=Acme, Reporting range=2024-01\nSearch Query,Impressions\nbento box,1000\n")

	tbl, err := Load(File{Name: "report.csv", Data: data})
	require.NoError(t, err)

	assert.Equal(t, []string{"Search Query", "Impressions"}, tbl.Columns)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "bento box", tbl.Rows[0]["Search Query"])
}

func TestLoad_CSVLatin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 but invalid UTF-8 on its own.
	data := []byte("Search Query,Impressions\ncaf\xe9 press,100\n")

	tbl, err := Load(File{Name: "report.csv", Data: data})
	require.NoError(t, err)

	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "café press", tbl.Rows[0]["Search Query"])
}

func TestLoad_CSVShortRecord(t *testing.T) {
	data := []byte("Search Query,Impressions,Clicks\nbento box,1000\n")

	tbl, err := Load(File{Name: "report.csv", Data: data})
	require.NoError(t, err)

	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "1000", tbl.Rows[0]["Impressions"])
	assert.Equal(t, "", tbl.Rows[0]["Clicks"])
}

func TestLoad_XLSXSkipsTitleRow(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)

	title := sheet.AddRow()
	title.AddCell().SetString("Search Query Performance Report")
	header := sheet.AddRow()
	header.AddCell().SetString("Search Query")
	header.AddCell().SetString("Impressions")
	row := sheet.AddRow()
	row.AddCell().SetString("bento box")
	row.AddCell().SetString("1000")

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	tbl, err := Load(File{Name: "report.xlsx", Data: buf.Bytes()})
	require.NoError(t, err)

	assert.Equal(t, []string{"Search Query", "Impressions"}, tbl.Columns)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "bento box", tbl.Rows[0]["Search Query"])
	assert.Equal(t, "1000", tbl.Rows[0]["Impressions"])
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	_, err := Load(File{Name: "report.pdf", Data: []byte("%PDF")})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedFormat))
}

func TestLoadAll_LaterFilesWin(t *testing.T) {
	first := []byte("Search Query,Impressions\nbento box,100\nlunch box,50\n")
	second := []byte("Search Query,Impressions\nbento box,999\n")

	tbl, err := LoadAll([]File{
		{Name: "jan.csv", Data: first},
		{Name: "feb.csv", Data: second},
	}, schema.DefaultRules())
	require.NoError(t, err)

	require.Equal(t, 2, tbl.Len())
	byQuery := map[string]model.Row{}
	for _, r := range tbl.Rows {
		byQuery[r[model.ColSearchQuery]] = r
	}
	assert.Equal(t, "999", byQuery["bento box"][model.ColImpressions])
	assert.Equal(t, "50", byQuery["lunch box"][model.ColImpressions])
}

func TestLoadAll_NormalizesSynonyms(t *testing.T) {
	data := []byte("Search Term,Impressions: Total Count\nbento box,1000\n")

	tbl, err := LoadAll([]File{{Name: "report.csv", Data: data}}, schema.DefaultRules())
	require.NoError(t, err)

	assert.True(t, tbl.HasColumn(model.ColSearchQuery))
	assert.True(t, tbl.HasColumn(model.ColImpressions))
	assert.Equal(t, "1000", tbl.Rows[0][model.ColImpressions])
}

func TestLoadAll_AbortsOnBadFile(t *testing.T) {
	good := []byte("Search Query,Impressions\nbento box,100\n")

	_, err := LoadAll([]File{
		{Name: "good.csv", Data: good},
		{Name: "bad.pdf", Data: []byte("%PDF")},
	}, schema.DefaultRules())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedFormat))
}

func TestLoadAll_MissingIdentityColumn(t *testing.T) {
	data := []byte("Foo,Bar\na,b\n")

	_, err := LoadAll([]File{{Name: "report.csv", Data: data}}, schema.DefaultRules())
	require.Error(t, err)
	assert.True(t, eris.Is(err, schema.ErrMissingIdentityColumn))
}

func TestLoadAll_NoFiles(t *testing.T) {
	_, err := LoadAll(nil, schema.DefaultRules())
	require.Error(t, err)
}
