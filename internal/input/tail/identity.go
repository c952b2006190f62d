package tail

import (
	"fmt"
	"os"
)

// FileID identifies a physical file independent of its name.
type FileID struct {
	Dev uint64
	Ino uint64
}

func (id FileID) String() string {
	return fmt.Sprintf("%d:%d", id.Dev, id.Ino)
}

// Identify stats path and returns its identity along with the file info.
func Identify(path string) (FileID, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileID{}, nil, err
	}
	id, err := getFileID(info)
	if err != nil {
		return FileID{}, nil, err
	}
	return id, info, nil
}
