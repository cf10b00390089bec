package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "twitsent/pkg/errors"
	"twitsent/pkg/logger"
	"twitsent/pkg/models"
)

func testSpec() models.CollectionSpec {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.CollectionSpec{
		Rule:                `("covid")`,
		Languages:           []string{"en"},
		Start:               start,
		End:                 start.Add(12 * time.Hour),
		IntervalLength:      4 * time.Hour,
		MaxItemsPerInterval: 10,
	}
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)
	return mgr
}

func TestSaveAndLoad(t *testing.T) {
	mgr := newManager(t)
	spec := testSpec()
	intervals := []models.Interval{
		{Index: 0, Window: models.TimeWindow{Start: spec.End.Add(-4 * time.Hour), End: spec.End}, Items: []string{"stay safe", "masks work"}},
		{Index: 1, Window: models.TimeWindow{Start: spec.End.Add(-8 * time.Hour), End: spec.End.Add(-4 * time.Hour)}, Items: []string{}},
	}
	cause := &errs.Error{Type: errs.ErrorTypeRateLimitExhausted, Message: "rate limit exhausted", Code: 429}

	path, err := mgr.Save(NewSnapshot("keyword", spec, intervals, cause))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(mgr.Dir(), "keyword.checkpoint.json"), path)
	assert.NoFileExists(t, path+".tmp")

	loaded, err := mgr.Load("keyword")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "keyword", loaded.Series)
	assert.Equal(t, 240, loaded.IntervalMinutes)
	assert.Equal(t, 3, loaded.ExpectedCount)
	assert.Equal(t, 2, loaded.ItemCount())
	assert.False(t, loaded.Complete())
	assert.Equal(t, "rate_limit_exhausted", loaded.ErrorType)
	assert.Contains(t, loaded.Error, "code 429")
	assert.Equal(t, Version, loaded.Version)
	assert.False(t, loaded.CreatedAt.IsZero())
	assert.Equal(t, []string{"stay safe", "masks work"}, loaded.Intervals[0].Items)
}

func TestLoadMissing(t *testing.T) {
	mgr := newManager(t)

	s, err := mgr.Load("sample")
	assert.NoError(t, err)
	assert.Nil(t, s)
	assert.False(t, mgr.Exists("sample"))
}

func TestSaveOverwrites(t *testing.T) {
	mgr := newManager(t)
	spec := testSpec()

	_, err := mgr.Save(NewSnapshot("sample", spec, nil, nil))
	require.NoError(t, err)
	_, err = mgr.Save(NewSnapshot("sample", spec, []models.Interval{{Items: []string{"a"}}}, nil))
	require.NoError(t, err)

	loaded, err := mgr.Load("sample")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.ItemCount())
	assert.Empty(t, loaded.Error)
}

func TestSaveRejectsBadNames(t *testing.T) {
	mgr := newManager(t)

	_, err := mgr.Save(&Snapshot{})
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))

	_, err = mgr.Save(&Snapshot{Series: "../escape"})
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
}

func TestLoadCorrupt(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, os.WriteFile(mgr.Path("keyword"), []byte("{not json"), 0644))

	_, err := mgr.Load("keyword")
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))
}

func TestLoadNewerVersion(t *testing.T) {
	mgr := newManager(t)
	require.NoError(t, os.WriteFile(mgr.Path("keyword"), []byte(`{"series":"keyword","version":99}`), 0644))

	_, err := mgr.Load("keyword")
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
}

func TestDeleteAndList(t *testing.T) {
	mgr := newManager(t)
	spec := testSpec()
	for _, name := range []string{"sample", "keyword"} {
		_, err := mgr.Save(NewSnapshot(name, spec, nil, nil))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(mgr.Dir(), "notes.txt"), []byte("x"), 0644))

	names, err := mgr.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"keyword", "sample"}, names)

	require.NoError(t, mgr.Delete("keyword"))
	assert.False(t, mgr.Exists("keyword"))
	assert.NoError(t, mgr.Delete("keyword"))
}

func TestNewManagerRequiresDir(t *testing.T) {
	_, err := NewManager("", nil)
	assert.Error(t, err)
}
