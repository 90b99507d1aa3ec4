package collector

import (
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"instametrics/internal/collector/interfaces"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/structures"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const archiveSuffix = ".json.zst"

// ArchiveFile is the on-disk format of one retention purge.
type ArchiveFile struct {
	Cutoff     string                    `json:"cutoff"`
	ArchivedAt time.Time                 `json:"archived_at"`
	Snapshots  []models.FollowerSnapshot `json:"snapshots"`
}

// Archive keeps purged follower snapshots as zstd-compressed JSON files.
type Archive struct {
	dir        string
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewArchive(dir string, compressor interfaces.CompressorInterface, logger providers.Logger) *Archive {
	return &Archive{dir: dir, compressor: compressor, logger: logger}
}

// NewArchiveProvider returns a disabled archive when collector.archiveDir is empty.
func NewArchiveProvider(conf *structures.Config, logger providers.Logger) (*Archive, error) {
	if conf.Collector.ArchiveDir == "" {
		return &Archive{logger: logger}, nil
	}
	compressor, err := NewZstdCompressor()
	if err != nil {
		return nil, err
	}
	return NewArchive(conf.Collector.ArchiveDir, compressor, logger), nil
}

func (a *Archive) Enabled() bool {
	return a != nil && a.dir != ""
}

// Write stores snapshots under a name derived from cutoff and returns the path.
// An empty batch writes nothing.
func (a *Archive) Write(cutoff time.Time, snapshots []models.FollowerSnapshot, now time.Time) (string, error) {
	if len(snapshots) == 0 {
		return "", nil
	}

	jsonData, err := json.Marshal(ArchiveFile{
		Cutoff:     cutoff.Format(models.DateLayout),
		ArchivedAt: now.UTC(),
		Snapshots:  snapshots,
	})
	if err != nil {
		return "", err
	}
	data, err := a.compressor.Compress(jsonData)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", err
	}
	fileName := filepath.Join(a.dir, fmt.Sprintf("snapshots-%s-%d%s",
		cutoff.Format(models.DateLayout), now.Unix(), archiveSuffix))

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return "", err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return "", err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return "", err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return "", err
	}

	if err = os.Rename(tmpFile, fileName); err != nil {
		os.Remove(tmpFile)
		return "", err
	}
	return fileName, nil
}

func (a *Archive) Read(fileName string) (*ArchiveFile, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	decompressed, err := a.compressor.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", fileName, err)
	}

	var af ArchiveFile
	if err := json.Unmarshal(decompressed, &af); err != nil {
		return nil, fmt.Errorf("parse %s: %w", fileName, err)
	}
	return &af, nil
}

// List returns archive files oldest first. A missing directory is empty.
func (a *Archive) List() ([]string, error) {
	if _, err := os.Stat(a.dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(a.dir, "snapshots-*"+archiveSuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Snapshots reads every archive in the directory, skipping unreadable files.
func (a *Archive) Snapshots() ([]models.FollowerSnapshot, error) {
	files, err := a.List()
	if err != nil {
		return nil, err
	}

	var out []models.FollowerSnapshot
	for _, file := range files {
		af, err := a.Read(file)
		if err != nil {
			a.logger.Errorf(providers.TypeCollector, "Failed to read archive %s: %s", filepath.Base(file), err)
			continue
		}
		out = append(out, af.Snapshots...)
	}
	return out, nil
}

func (a *Archive) Close() {
	if a == nil || a.compressor == nil {
		return
	}
	a.compressor.Close()
}
