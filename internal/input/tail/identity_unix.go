//go:build unix

package tail

import (
	"fmt"
	"os"
	"syscall"
)

func getFileID(info os.FileInfo) (FileID, error) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return FileID{Dev: uint64(stat.Dev), Ino: uint64(stat.Ino)}, nil
	}
	return FileID{}, fmt.Errorf("failed to get file inode")
}
