package fileutil

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystem は実ファイルシステムと埋め込みファイルシステムを統一的に扱うインターフェース
type FileSystem interface {
	// ReadFile はファイルの内容を読み込む（大文字小文字を無視）
	ReadFile(name string) ([]byte, error)
	// Exists はファイルが存在するかを返す（大文字小文字を無視）
	Exists(name string) bool
	// BasePath はベースパスを返す
	BasePath() string
	// IsEmbedded は埋め込みファイルシステムかどうかを返す
	IsEmbedded() bool
}

// RealFS は実ファイルシステムへのアクセスを提供する
type RealFS struct {
	basePath string
}

// NewRealFS は実ファイルシステム用のFileSystemを作成する
func NewRealFS(basePath string) *RealFS {
	return &RealFS{basePath: basePath}
}

// SplitPath はファイルパスをディレクトリのRealFSとファイル名に分ける
// コマンドライン引数で受け取ったMIDIファイルのパスをローダーに渡すときに使う
func SplitPath(path string) (*RealFS, string) {
	return NewRealFS(filepath.Dir(path)), filepath.Base(path)
}

func (r *RealFS) ReadFile(name string) ([]byte, error) {
	actualPath, err := r.findFileCaseInsensitive(r.resolvePath(name))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(actualPath)
}

func (r *RealFS) Exists(name string) bool {
	_, err := r.findFileCaseInsensitive(r.resolvePath(name))
	return err == nil
}

func (r *RealFS) BasePath() string {
	return r.basePath
}

func (r *RealFS) IsEmbedded() bool {
	return false
}

func (r *RealFS) resolvePath(name string) string {
	// 絶対パスはそのまま使う
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.basePath, filepath.FromSlash(trimRoot(name)))
}

func (r *RealFS) findFileCaseInsensitive(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	return FindFileCaseInsensitive(filepath.Dir(name), filepath.Base(name))
}

// EmbedFS は埋め込みファイルシステムへのアクセスを提供する
type EmbedFS struct {
	fsys     fs.FS
	basePath string
}

// NewEmbedFS は埋め込みファイルシステム用のFileSystemを作成する
func NewEmbedFS(fsys fs.FS, basePath string) *EmbedFS {
	return &EmbedFS{fsys: fsys, basePath: basePath}
}

func (e *EmbedFS) ReadFile(name string) ([]byte, error) {
	actualPath, err := e.findFileCaseInsensitive(e.resolvePath(name))
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(e.fsys, actualPath)
}

func (e *EmbedFS) Exists(name string) bool {
	_, err := e.findFileCaseInsensitive(e.resolvePath(name))
	return err == nil
}

func (e *EmbedFS) BasePath() string {
	return e.basePath
}

func (e *EmbedFS) IsEmbedded() bool {
	return true
}

// resolvePath fs.FS のパスは常に "/" 区切り
func (e *EmbedFS) resolvePath(name string) string {
	return path.Join(e.basePath, trimRoot(name))
}

func (e *EmbedFS) findFileCaseInsensitive(name string) (string, error) {
	if _, err := fs.Stat(e.fsys, name); err == nil {
		return name, nil
	}
	return FindFileCaseInsensitiveFS(e.fsys, path.Dir(name), path.Base(name))
}

// trimRoot 先頭の区切り文字を取り除く
func trimRoot(name string) string {
	return strings.TrimLeft(filepath.ToSlash(name), "/")
}
