package donor

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"animux/internal/services"
)

var kindByExtension = map[string]FileKind{
	".mkv":  KindVideo,
	".mp4":  KindVideo,
	".avi":  KindVideo,
	".webm": KindVideo,
	".mka":  KindAudio,
	".m4a":  KindAudio,
	".mp3":  KindAudio,
	".flac": KindAudio,
	".opus": KindAudio,
	".ogg":  KindAudio,
	".aac":  KindAudio,
	".ac3":  KindAudio,
	".wav":  KindAudio,
	".ass":  KindSubtitle,
	".ssa":  KindSubtitle,
	".srt":  KindSubtitle,
	".vtt":  KindSubtitle,
}

// classify builds a File record from a path, or false for unrecognized
// extensions.
func classify(path string) (File, bool) {
	kind, ok := kindByExtension[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return File{}, false
	}
	return File{
		Path:          path,
		Kind:          kind,
		EpisodeNumber: ExtractEpisodeNumber(path),
		ContentType:   DetectContentType(path),
		DubGroup:      ExtractDubGroup(path),
	}, true
}

// Scan walks a donor folder and classifies every recognized media file,
// sorted by path for stable ordering.
func Scan(root string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "donor", "scan", root, err)
	}
	if !info.IsDir() {
		file, ok := classify(root)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "donor", "scan", "unrecognized file type: "+root, nil)
		}
		return []File{file}, nil
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		if file, ok := classify(path); ok {
			files = append(files, file)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(nil, "donor", "scan", "", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
