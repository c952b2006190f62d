//go:build !unix

package tail

import (
	"errors"
	"os"
)

func getFileID(os.FileInfo) (FileID, error) {
	return FileID{}, errors.New("file identity requires a unix platform")
}
