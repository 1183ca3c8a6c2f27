package coverage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `[
  {"region":"Dhaka","district":"Dhaka","city":"Dhaka","covered_area":["Uttara","Dhanmondi","Mirpur"],"status":"active","latitude":23.8103,"longitude":90.4125},
  {"region":"Chattogram","district":"Cox's Bazar","city":"Cox's Bazar","covered_area":["Kolatoli","Teknaf"],"status":"active","latitude":21.4272,"longitude":92.0058},
  {"region":"Dhaka","district":"Gazipur","city":"Gazipur","covered_area":["Tongi","Kaliakair"],"status":"active","latitude":23.9999,"longitude":90.4203}
]`

func TestParseAndLookup(t *testing.T) {
	idx, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	w, ok := idx.District("  gazipur ")
	require.True(t, ok)
	assert.Equal(t, "Gazipur", w.District)

	_, ok = idx.District("Sylhet")
	assert.False(t, ok)

	assert.Equal(t, []string{"Cox's Bazar", "Dhaka", "Gazipur"}, idx.Districts())
}

func TestSearch(t *testing.T) {
	idx, err := Parse([]byte(sample))
	require.NoError(t, err)

	byArea := idx.Search("DHANM")
	require.Len(t, byArea, 1)
	assert.Equal(t, "Dhaka", byArea[0].District)

	byDistrict := idx.Search("cox")
	require.Len(t, byDistrict, 1)

	assert.Empty(t, idx.Search(""))
	assert.Empty(t, idx.Search("Rangpur"))
}

func TestLoadFileAndURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warehouses.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	idx, err := Load(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	idx, err = Load(context.Background(), srv.URL, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)

	_, err = Parse([]byte(`{"not":"a list"}`))
	assert.Error(t, err)
}

func TestMapLink(t *testing.T) {
	idx, _ := Parse([]byte(sample))
	w, _ := idx.District("Dhaka")
	assert.Equal(t, "https://www.google.com/maps?q=23.810300,90.412500", MapLink(w))
}
