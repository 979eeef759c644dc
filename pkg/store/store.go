package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shouni/go-feed-harvest/pkg/bucket"
)

const (
	linksDirName = "links"
	fileExt      = ".txt"
	dirPerm      = 0o755
	filePerm     = 0o644
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// FS は、永続化に必要なファイルシステム操作のインターフェースです。
type FS interface {
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(name string, data []byte, perm os.FileMode) error
	ReadFile(name string) ([]byte, error)
	ReadDir(name string) ([]os.DirEntry, error)
}

// OSFS は os パッケージによる FS の実装です。
type OSFS struct{}

func (OSFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (OSFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
func (OSFS) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (OSFS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

// PersistenceError は、ディレクトリの作成やファイルの書き込みに失敗したことを示します。
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("リンクの保存に失敗しました (%s): %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError は与えられたエラーが PersistenceError であるかを判断します。
func IsPersistenceError(err error) bool {
	if err == nil {
		return false
	}
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}

// Store は、年ごとのリンク列を <root>/<scope>/links/<年>.txt に保存します。
// 同じ実行内で同じファイルに2回以上書き込む場合は、既存の内容に追記します。
type Store struct {
	root    string
	fs      FS
	written map[string]bool
}

// New は root 以下に保存する Store を生成します。fsys が nil の場合は OSFS を使います。
func New(root string, fsys FS) *Store {
	if fsys == nil {
		fsys = OSFS{}
	}
	return &Store{
		root:    root,
		fs:      fsys,
		written: make(map[string]bool),
	}
}

// Dir は scope のリンクを保存するディレクトリを返します。
func (s *Store) Dir(scope string) string {
	return filepath.Join(s.root, scope, linksDirName)
}

// Path は scope と年に対応するファイルのパスを返します。
func (s *Store) Path(scope, year string) string {
	return filepath.Join(s.Dir(scope), year+fileExt)
}

// Save は b の各年のリンク列を改行区切りで書き込み、書き込んだパスを年の出現順に返します。
// 途中で失敗した場合は、それまでに書き込んだパスと PersistenceError を返します。
func (s *Store) Save(scope string, b *bucket.Buckets) ([]string, error) {
	dir := s.Dir(scope)
	if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
		return nil, &PersistenceError{Path: dir, Err: err}
	}

	var paths []string
	for _, year := range b.Years() {
		path := s.Path(scope, year)
		content := strings.Join(b.Links(year), "\n")

		if s.written[path] {
			existing, err := s.fs.ReadFile(path)
			if err != nil {
				return paths, &PersistenceError{Path: path, Err: err}
			}
			if len(existing) > 0 {
				content = string(existing) + "\n" + content
			}
		}

		if err := s.fs.WriteFile(path, []byte(content), filePerm); err != nil {
			return paths, &PersistenceError{Path: path, Err: err}
		}
		s.written[path] = true
		paths = append(paths, path)
	}
	return paths, nil
}

// Load は scope のディレクトリにある <年>.txt を読み込み、Buckets を再構築します。
// 年のキーは昇順に並びます。
func (s *Store) Load(scope string) (*bucket.Buckets, error) {
	dir := s.Dir(scope)
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return bucket.New(), nil
		}
		return nil, fmt.Errorf("ディレクトリの読み込みに失敗しました (%s): %w", dir, err)
	}

	var years []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		years = append(years, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(years)

	b := bucket.New()
	for _, year := range years {
		data, err := s.fs.ReadFile(s.Path(scope, year))
		if err != nil {
			return nil, fmt.Errorf("ファイルの読み込みに失敗しました: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				b.Add(year, line)
			}
		}
	}
	return b, nil
}
