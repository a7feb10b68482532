// Package upload はレシピ画像の検証と保存を提供する。
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/hitoshi/flavorshare/internal/model"
)

// PublicPrefix は保存した画像をクライアントに返すときのパス接頭辞。
// /uploads/ 配下はアップロードディレクトリから静的配信される。
const PublicPrefix = "uploads/recipes/"

const (
	recipeSubdir = "recipes"
	thumbSubdir  = "thumb"
)

// allowedExtensions は受け付ける画像の拡張子。
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// ImageStore はアップロード画像をローカルディスクに保存する。
// 元画像はそのまま保存し、幅thumbWidthのサムネイルを thumb/ に生成する。
type ImageStore struct {
	dir        string
	maxSize    int64
	thumbWidth int
	newID      func() string
}

// NewImageStore はImageStoreを生成する。dirはUPLOAD_DIRで、その下の recipes/ に保存する。
func NewImageStore(dir string, maxSize int64, thumbWidth int) *ImageStore {
	return &ImageStore{
		dir:        dir,
		maxSize:    maxSize,
		thumbWidth: thumbWidth,
		newID:      func() string { return uuid.New().String() },
	}
}

// MaxSize は受け付ける画像の最大バイト数を返す。
func (s *ImageStore) MaxSize() int64 {
	return s.maxSize
}

// Save は画像を検証して保存し、公開パス（uploads/recipes/<id>.<ext>）を返す。
// 拡張子、サイズ、画像としてデコードできるかを検証し、失敗時は*model.APIErrorを返す。
func (s *ImageStore) Save(filename string, size int64, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", model.NewImageTypeNotAllowedError()
	}
	if size > s.maxSize {
		return "", model.NewImageTooLargeError(s.maxSize)
	}

	// 申告サイズを信用せず、上限+1バイトまで読んで超過を検出する
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", model.NewImageTooLargeError(s.maxSize)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", model.NewInvalidImageError()
	}

	name := s.newID() + ext
	recipeDir := filepath.Join(s.dir, recipeSubdir)
	thumbDir := filepath.Join(recipeDir, thumbSubdir)
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	originalPath := filepath.Join(recipeDir, name)
	if err := os.WriteFile(originalPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save original image: %w", err)
	}

	thumb := imaging.Resize(img, s.thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, name)); err != nil {
		os.Remove(originalPath)
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}

	return PublicPrefix + name, nil
}

// Remove は公開パスに対応する元画像とサムネイルを削除する。
// 存在しないファイルは無視する。このストアが発行した形式以外のパスは拒否する。
func (s *ImageStore) Remove(publicPath string) error {
	if publicPath == "" {
		return nil
	}
	name := strings.TrimPrefix(publicPath, PublicPrefix)
	if name == publicPath || name == "" || path.Base(name) != name {
		return fmt.Errorf("refusing to remove unmanaged path %q", publicPath)
	}

	var errs []error
	for _, p := range []string{
		filepath.Join(s.dir, recipeSubdir, name),
		filepath.Join(s.dir, recipeSubdir, thumbSubdir, name),
	} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to remove image: %w", errors.Join(errs...))
	}

	slog.Info("recipe image removed", slog.String("path", publicPath))
	return nil
}
