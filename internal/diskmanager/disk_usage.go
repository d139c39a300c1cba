// Package diskmanager answers disk space questions for model storage.
package diskmanager

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/tphakala/imagelab/internal/errors"
)

// DiskSpaceInfo holds detailed disk space information.
type DiskSpaceInfo struct {
	TotalBytes uint64
	UsedBytes  uint64
	FreeBytes  uint64
}

// UsedPercent returns used space as a percentage of total.
func (d DiskSpaceInfo) UsedPercent() float64 {
	if d.TotalBytes == 0 {
		return 0
	}
	return float64(d.UsedBytes) / float64(d.TotalBytes) * 100.0
}

// GetDetailedDiskUsage returns usage of the file system holding path. If
// path does not exist yet, its nearest existing ancestor is used.
func GetDetailedDiskUsage(ctx context.Context, path string) (DiskSpaceInfo, error) {
	target := existingAncestor(path)
	usage, err := disk.UsageWithContext(ctx, target)
	if err != nil {
		return DiskSpaceInfo{}, errors.New(err).
			Component("diskmanager").
			Category(errors.CategoryDiskUsage).
			Context("operation", "disk-usage").
			Build()
	}
	return DiskSpaceInfo{
		TotalBytes: usage.Total,
		UsedBytes:  usage.Used,
		FreeBytes:  usage.Free,
	}, nil
}

// EnsureFreeSpace fails with a disk-usage error when fewer than minFree
// bytes are available at path. minFree 0 always succeeds.
func EnsureFreeSpace(ctx context.Context, path string, minFree uint64) error {
	if minFree == 0 {
		return nil
	}
	info, err := GetDetailedDiskUsage(ctx, path)
	if err != nil {
		return err
	}
	if info.FreeBytes < minFree {
		return errors.Newf("insufficient disk space: %d bytes free, %d required", info.FreeBytes, minFree).
			Component("diskmanager").
			Category(errors.CategoryDiskUsage).
			Context("free_bytes", info.FreeBytes).
			Context("required_bytes", minFree).
			Build()
	}
	return nil
}

// DirSize returns the total size of regular files under path. A regular
// file yields its own size; a missing path yields 0.
func DirSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, errors.FileError(err, path, 0)
	}
	return total, nil
}

func existingAncestor(path string) string {
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}
