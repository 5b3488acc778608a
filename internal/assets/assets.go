// Package assets resolves optional room illustrations from the dungeons
// directory: <dir>/<floor>/<room>.jpg or .png.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/suderio/delver/internal/dungeon"
)

// Library probes the filesystem for room images. A missing image is normal;
// rooms simply go unillustrated.
type Library struct {
	dirs []string
}

// NewLibrary initializes a Library over the given directory fallback hierarchy.
func NewLibrary(dirs []string) *Library {
	return &Library{dirs: dirs}
}

// RoomImage returns the path of the floor/room illustration, if one exists.
func (l *Library) RoomImage(floor int, room dungeon.RoomID) (string, bool) {
	for _, dir := range l.dirs {
		for _, ext := range []string{"jpg", "png"} {
			path := filepath.Join(dir, strconv.Itoa(floor), fmt.Sprintf("%s.%s", room, ext))
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}
	return "", false
}
