package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// TarGzCodec handles gzip-compressed tarballs. The format carries no
// password support; supplying one is rejected rather than silently
// ignored.
type TarGzCodec struct{}

// Compress packs paths into a new .tar.gz archive
func (c *TarGzCodec) Compress(ctx context.Context, paths []string, archivePath, password string) error {
	if password != "" {
		return ErrPasswordUnsupported
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", archivePath, err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

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

			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = filepath.ToSlash(rel)

			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}

			if info.IsDir() {
				return nil
			}

			in, err := os.Open(p)
			if err != nil {
				return err
			}
			defer in.Close()

			_, err = io.Copy(tw, in)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to compress %s: %w", path, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finalize tarball: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finalize gzip stream: %w", err)
	}
	return out.Close()
}

// Extract unpacks the .tar.gz archive into destDir
func (c *TarGzCodec) Extract(ctx context.Context, archivePath, destDir, password string) error {
	if password != "" {
		return ErrPasswordUnsupported
	}

	root, err := c.Root(ctx, archivePath)
	if err != nil {
		return err
	}

	in, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("failed to read gzip stream of %s: %w", archivePath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tarball %s: %w", archivePath, err)
		}

		target, err := secureJoin(destDir, stripRoot(hdr.Name, root))
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode).Perm()|0700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", hdr.Name, err)
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", target, err)
			}
		default:
			// Symlinks and special files are not produced by Compress;
			// skip them rather than fail the whole extraction
		}
	}
}

// Root reports the single top-level directory every entry of the
// tarball lives under, or "" when the contents have no common root
func (c *TarGzCodec) Root(ctx context.Context, archivePath string) (string, error) {
	in, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("failed to read gzip stream of %s: %w", archivePath, err)
	}
	defer gz.Close()

	var t rootTracker
	tr := tar.NewReader(gz)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return t.single(), nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read tarball %s: %w", archivePath, err)
		}
		t.add(hdr.Name, hdr.Typeflag == tar.TypeDir)
	}
}
