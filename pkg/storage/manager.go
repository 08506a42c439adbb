package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/billbook/config"
	"github.com/shashiranjanraj/billbook/pkg/logger"
)

var (
	mu          sync.RWMutex
	disks       = map[string]Disk{}
	defaultName = "local"
)

// Connect boots the configured disks. The local disk always exists; the
// S3 disk is added when a bucket is configured. A broken S3 setup is
// logged and the disk left out.
func Connect(ctx context.Context) {
	mu.Lock()
	defer mu.Unlock()

	defaultName = config.StorageDefault()
	disks["local"] = NewLocalDisk(config.StorageLocalRoot(), config.StorageURL())

	if config.StorageS3Bucket() != "" {
		d, err := NewS3Disk(ctx, S3Config{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			URL:      config.StorageS3URL(),
		})
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			disks["s3"] = d
		}
	}

	if _, ok := disks[defaultName]; !ok {
		logger.Warn("storage: default disk unavailable, using local", "disk", defaultName)
		defaultName = "local"
	}
}

// Use returns the named disk.
func Use(name string) (Disk, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// Default returns the disk selected by STORAGE_DISK, booting the local disk
// on first use if Connect was never called.
func Default() Disk {
	mu.RLock()
	d, ok := disks[defaultName]
	mu.RUnlock()
	if ok {
		return d
	}

	mu.Lock()
	defer mu.Unlock()
	if d, ok := disks[defaultName]; ok {
		return d
	}
	local := NewLocalDisk(config.StorageLocalRoot(), config.StorageURL())
	disks["local"] = local
	defaultName = "local"
	return local
}

// RegisterDisk plugs in a custom Disk.
func RegisterDisk(name string, d Disk) {
	mu.Lock()
	disks[name] = d
	mu.Unlock()
}
