package dataset

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Create(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateRejectsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.db")
	s, err := Create(path)
	require.NoError(t, err)
	s.Close()

	_, err = Create(path)
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}

func TestGroupHierarchy(t *testing.T) {
	s := createTestStore(t)
	root, err := s.Root()
	require.NoError(t, err)

	meas, err := root.CreateGroup("Measurement_000")
	require.NoError(t, err)
	assert.Equal(t, "/Measurement_000", meas.Path())

	chn, err := meas.CreateGroup("Channel_000")
	require.NoError(t, err)
	assert.Equal(t, "/Measurement_000/Channel_000", chn.Path())

	// Duplicate names under one parent are rejected.
	_, err = meas.CreateGroup("Channel_000")
	assert.Error(t, err)

	// Reopen by name.
	got, err := root.Group("Measurement_000")
	require.NoError(t, err)
	assert.Equal(t, meas.Path(), got.Path())

	_, err = root.Group("Measurement_001")
	assert.True(t, errors.Is(err, ErrNotFound))

	children, err := meas.Groups()
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Channel_000", children[0].Name())
}

func TestAttrRoundTrip(t *testing.T) {
	s := createTestStore(t)
	root, err := s.Root()
	require.NoError(t, err)
	g, err := root.CreateGroup("Measurement_000")
	require.NoError(t, err)

	require.NoError(t, g.SetAttrInt("num_steps", 64))
	require.NoError(t, g.SetAttrFloat("BE_pulse_duration_[s]", 0.004))
	require.NoError(t, g.SetAttrString("algorithm", "relax_fit_Exponential"))

	n, err := g.AttrInt("num_steps")
	require.NoError(t, err)
	assert.Equal(t, int64(64), n)

	dt, err := g.AttrFloat("BE_pulse_duration_[s]")
	require.NoError(t, err)
	assert.InDelta(t, 0.004, dt, 1e-15)

	alg, err := g.AttrString("algorithm")
	require.NoError(t, err)
	assert.Equal(t, "relax_fit_Exponential", alg)

	// Overwrite replaces in place.
	require.NoError(t, g.SetAttrInt("num_steps", 128))
	n, err = g.AttrInt("num_steps")
	require.NoError(t, err)
	assert.Equal(t, int64(128), n)

	_, err = g.AttrFloat("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	// Kind mismatch surfaces instead of coercing.
	_, err = g.AttrString("num_steps")
	assert.Error(t, err)

	attrs, err := g.Attrs()
	require.NoError(t, err)
	assert.Len(t, attrs, 3)
}

func TestFlushedStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Create(path)
	require.NoError(t, err)

	root, err := s.Root()
	require.NoError(t, err)
	g, err := root.CreateGroup("Measurement_000")
	require.NoError(t, err)
	require.NoError(t, g.SetAttrInt("last_pixel", 7))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	root2, err := s2.Root()
	require.NoError(t, err)
	g2, err := root2.Group("Measurement_000")
	require.NoError(t, err)
	v, err := g2.AttrInt("last_pixel")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}
