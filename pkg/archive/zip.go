package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yeka/zip"
)

// ZipCodec handles zip archives, including AES-256 password protection
type ZipCodec struct{}

// Compress packs paths into a new zip archive
func (c *ZipCodec) Compress(ctx context.Context, paths []string, archivePath, password string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", archivePath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	for _, path := range paths {
		base := filepath.Dir(path)
		err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			rel, err := filepath.Rel(base, p)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)

			if info.IsDir() {
				// Directory entries keep extractors that rely on them
				// happy; content-less, trailing slash
				if password == "" {
					hdr := &zip.FileHeader{Name: name + "/"}
					hdr.SetModTime(info.ModTime())
					_, err := zw.CreateHeader(hdr)
					return err
				}
				return nil
			}

			var entry io.Writer
			if password != "" {
				entry, err = zw.Encrypt(name, password, zip.AES256Encryption)
			} else {
				hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
				hdr.SetModTime(info.ModTime())
				entry, err = zw.CreateHeader(hdr)
			}
			if err != nil {
				return err
			}

			in, err := os.Open(p)
			if err != nil {
				return err
			}
			defer in.Close()

			_, err = io.Copy(entry, in)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to compress %s: %w", path, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive %s: %w", archivePath, err)
	}
	return out.Close()
}

// Extract unpacks the zip archive into destDir
func (c *ZipCodec) Extract(ctx context.Context, archivePath, destDir, password string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer r.Close()

	var t rootTracker
	for _, f := range r.File {
		t.add(f.Name, f.FileInfo().IsDir())
	}
	root := t.single()

	for _, f := range r.File {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.extractEntry(f, destDir, stripRoot(f.Name, root), password); err != nil {
			return err
		}
	}

	return nil
}

// Root reports the single top-level directory every entry of the
// archive lives under, or "" when the contents have no common root
func (c *ZipCodec) Root(ctx context.Context, archivePath string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer r.Close()

	var t rootTracker
	for _, f := range r.File {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		t.add(f.Name, f.FileInfo().IsDir())
	}
	return t.single(), nil
}

func (c *ZipCodec) extractEntry(f *zip.File, destDir, name, password string) error {
	target, err := secureJoin(destDir, name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if f.IsEncrypted() {
		if password == "" {
			return fmt.Errorf("entry %s: %w", f.Name, ErrPasswordRequired)
		}
		f.SetPassword(password)
	}

	rc, err := f.Open()
	if err != nil {
		if f.IsEncrypted() {
			return fmt.Errorf("entry %s: %w", f.Name, ErrWrongPassword)
		}
		return fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0200)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		// An authentication failure on an encrypted stream surfaces
		// here rather than at Open
		if f.IsEncrypted() {
			return fmt.Errorf("entry %s: %w", f.Name, ErrWrongPassword)
		}
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}

	return out.Close()
}

// secureJoin joins an archive entry name onto destDir, rejecting names
// that would escape it
func secureJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if target != destDir && !strings.HasPrefix(target, destDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry %q escapes the destination directory", name)
	}
	return target, nil
}
