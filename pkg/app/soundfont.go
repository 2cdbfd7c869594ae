package app

import (
	"io/fs"
	"os"

	"github.com/zurustar/beatbrawl/pkg/fileutil"
)

// SoundFontLocation はSoundFontファイルの場所
type SoundFontLocation struct {
	// Path はFileSystem内のパス
	Path string
	// FileSystem は読み込みに使うFileSystem
	FileSystem fileutil.FileSystem
	// IsEmbedded は埋め込みファイルかどうか
	IsEmbedded bool
}

// DefaultSoundFontName は自動検索するSoundFontのファイル名
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// findSoundFont SoundFontを以下の順で探す
// 1. 明示的に指定されたパス
// 2. 埋め込みの soundfonts ディレクトリ
// 3. カレントディレクトリ
// 4. スコアと同じディレクトリ
// 見つからなければ nil（音なしで動作する）
func findSoundFont(explicit string, embedFS fs.FS, scoreDir string) *SoundFontLocation {
	// 1. 指定されたパス（存在しなくても返し、読み込み時にエラーにする）
	if explicit != "" {
		fsys, name := fileutil.SplitPath(explicit)
		return &SoundFontLocation{Path: name, FileSystem: fsys}
	}

	// 2. 埋め込み
	if embedFS != nil {
		if path, err := fileutil.FindFileCaseInsensitiveFS(embedFS, "soundfonts", DefaultSoundFontName); err == nil {
			if data, err := fs.ReadFile(embedFS, path); err == nil && len(data) > 0 {
				return &SoundFontLocation{
					Path:       DefaultSoundFontName, // ベースパスが "soundfonts" なのでファイル名だけ
					FileSystem: fileutil.NewEmbedFS(embedFS, "soundfonts"),
					IsEmbedded: true,
				}
			}
		}
	}

	// 3. カレントディレクトリ
	if _, err := os.Stat(DefaultSoundFontName); err == nil {
		return &SoundFontLocation{Path: DefaultSoundFontName, FileSystem: fileutil.NewRealFS("")}
	}

	// 4. スコアのディレクトリ
	if scoreDir != "" {
		fsys := fileutil.NewRealFS(scoreDir)
		if fsys.Exists(DefaultSoundFontName) {
			return &SoundFontLocation{Path: DefaultSoundFontName, FileSystem: fsys}
		}
	}

	return nil
}
