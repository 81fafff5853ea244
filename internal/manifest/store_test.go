package manifest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamancini/backcycle/internal/backup"
	"github.com/adamancini/backcycle/internal/types"
)

func at(sec int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC)
}

func TestPath(t *testing.T) {
	tests := []struct {
		name      string
		kind      types.StorageKind
		storageID string
		want      string
	}{
		{"local without id", types.StorageKindLocal, "", "/data/nightly/Local.yml"},
		{"local with id", types.StorageKindLocal, "nas", "/data/nightly/Local-nas.yml"},
		{"s3 without id", types.StorageKindS3, "", "/data/nightly/S3.yml"},
		{"rsync with id", types.StorageKindRSync, "offsite", "/data/nightly/RSync-offsite.yml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New("/data", "nightly", tt.kind, tt.storageID).Path()
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestPath_DistinctPerStorageID(t *testing.T) {
	a := Path("/data", "nightly", types.StorageKindSFTP, "primary")
	b := Path("/data", "nightly", types.StorageKindSFTP, "secondary")
	legacy := Path("/data", "nightly", types.StorageKindSFTP, "")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, legacy)
	assert.Equal(t, filepath.Join("/data", "nightly", "SFTP.yml"), legacy)
}

func TestLoad_MissingFile(t *testing.T) {
	store := New(t.TempDir(), "nightly", types.StorageKindLocal, "")

	packages, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, packages)
	assert.NotNil(t, packages)
}

func TestLoad_EmptyFile(t *testing.T) {
	store := New(t.TempDir(), "nightly", types.StorageKindLocal, "")
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0755))
	require.NoError(t, os.WriteFile(store.Path(), nil, 0644))

	packages, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, packages)
}

func TestLoad_CorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid syntax", "- trigger: [unterminated\n"},
		{"mapping instead of list", "trigger: nightly\n"},
		{"scalar", "just some text\n"},
		{"bad time", "- trigger: nightly\n  time: yesterday-ish\n"},
		{"empty record", "- {}\n"},
		{"record without time", "- trigger: nightly\n"},
		{"record without trigger", "- time: 2024-01-01T00:00:00Z\n  filenames: [a.tar]\n"},
		{"one bad record among good ones", "- trigger: nightly\n  time: 2024-01-02T00:00:00Z\n- trigger: nightly\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New(t.TempDir(), "nightly", types.StorageKindLocal, "")
			require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0755))
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0644))

			packages, err := store.Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.Nil(t, packages)
		})
	}
}

func TestStore_Identity(t *testing.T) {
	store := New("/data", "nightly", types.StorageKindS3, "offsite")
	assert.Equal(t, "nightly", store.Trigger())
	assert.Equal(t, "offsite", store.StorageID())
}

func TestLoad_SortsNewestFirst(t *testing.T) {
	store := New(t.TempDir(), "nightly", types.StorageKindLocal, "")
	content := `- trigger: nightly
  time: 2024-01-01T00:00:01Z
  filenames: [p1.tar]
- trigger: nightly
  time: 2024-01-01T00:00:03Z
  filenames: [p3.tar]
- trigger: nightly
  time: 2024-01-01T00:00:02Z
  filenames: [p2.tar]
`
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0755))
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0644))

	packages, err := store.Load()
	require.NoError(t, err)
	require.Len(t, packages, 3)
	assert.Equal(t, []string{"p3.tar"}, packages[0].Filenames)
	assert.Equal(t, []string{"p2.tar"}, packages[1].Filenames)
	assert.Equal(t, []string{"p1.tar"}, packages[2].Filenames)
}

func TestLoad_TiesKeepFileOrder(t *testing.T) {
	store := New(t.TempDir(), "nightly", types.StorageKindLocal, "")
	require.NoError(t, store.Save([]backup.Package{
		backup.New("nightly", at(5), "first"),
		backup.New("nightly", at(5), "second"),
		backup.New("nightly", at(9), "newest"),
	}))

	packages, err := store.Load()
	require.NoError(t, err)
	require.Len(t, packages, 3)
	assert.Equal(t, "newest", packages[0].Filenames[0])
	assert.Equal(t, "first", packages[1].Filenames[0])
	assert.Equal(t, "second", packages[2].Filenames[0])
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := New(t.TempDir(), "nightly", types.StorageKindS3, "offsite")
	precise := time.Date(2024, 6, 30, 23, 59, 59, 123456789, time.FixedZone("CEST", 2*60*60))

	want := []backup.Package{
		{
			Trigger:   "nightly",
			Time:      precise,
			Filenames: []string{"nightly.tar.enc-aa", "nightly.tar.enc-ab"},
			NoCycle:   true,
			StorageID: "offsite",
		},
		backup.New("nightly", at(1), "old.tar"),
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0].Time.Equal(precise), "time = %v, want %v", got[0].Time, precise)
	assert.Equal(t, precise.Nanosecond(), got[0].Time.Nanosecond())
	assert.Equal(t, want[0].Filenames, got[0].Filenames)
	assert.True(t, got[0].NoCycle)
	assert.Equal(t, "offsite", got[0].StorageID)
	assert.Equal(t, "nightly", got[1].Trigger)
	assert.False(t, got[1].NoCycle)
}

func TestSave_CreatesDirectoryAndReplaces(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "nested", "data")
	store := New(dataPath, "nightly", types.StorageKindLocal, "")

	require.NoError(t, store.Save([]backup.Package{backup.New("nightly", at(1), "a")}))
	require.NoError(t, store.Save([]backup.Package{backup.New("nightly", at(2), "b")}))

	got, err := store.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"b"}, got[0].Filenames)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "Local.yml", entries[0].Name())
}

func TestSave_EmptyHistory(t *testing.T) {
	store := New(t.TempDir(), "nightly", types.StorageKindLocal, "")

	require.NoError(t, store.Save(nil))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSave_WriteFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0555))
	t.Cleanup(func() { _ = os.Chmod(root, 0755) })

	store := New(root, "nightly", types.StorageKindLocal, "")
	err := store.Save([]backup.Package{backup.New("nightly", at(1), "a")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)
}

func TestSave_DirectoryIsAFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "nightly"), []byte("not a dir"), 0644))

	store := New(root, "nightly", types.StorageKindLocal, "")
	err := store.Save([]backup.Package{backup.New("nightly", at(1), "a")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)
}
