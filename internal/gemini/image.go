package gemini

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/playpi/playpi/api/schemas"
	"github.com/playpi/playpi/internal/browser"
)

// downloadImage clicks the download control and picks up the artifact from
// the browser's download directory by diffing its listing around the click.
// The browser names the file itself, so the diff is the only reliable way to
// find it without CDP download interception.
func (s *Sequencer) downloadImage(ctx context.Context, page browser.Page, req schemas.Request, logger *zap.Logger) (string, error) {
	downloads, err := downloadsDir()
	if err != nil {
		return "", schemas.NewProviderError("image download", "cannot locate downloads directory", err)
	}
	before, err := listNames(downloads)
	if err != nil {
		return "", schemas.NewProviderError("image download", "cannot read downloads directory", err)
	}

	if err := page.WaitVisible(ctx, downloadImageButton, s.cfg.CandidateTimeout); err != nil {
		return "", schemas.NewProviderError("image download", "download button not found", err)
	}
	if err := page.Click(ctx, downloadImageButton); err != nil {
		return "", schemas.NewProviderError("image download", "failed to click download button", err)
	}
	sleepCtx(ctx, s.cfg.DownloadSettle)

	newest, err := newestAddition(downloads, before)
	if err != nil {
		return "", err
	}

	destDir := req.DownloadDir
	if destDir == "" {
		destDir = "."
	}
	dest := filepath.Join(destDir, filepath.Base(newest))
	if err := moveFile(newest, dest); err != nil {
		return "", schemas.NewProviderError("image download", "failed to move downloaded image", err)
	}
	logger.Info("Image downloaded", zap.String("path", dest))
	return dest, nil
}

func downloadsDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads"), nil
}

func listNames(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		names[e.Name()] = struct{}{}
	}
	return names, nil
}

// newestAddition returns the most recently modified file that appeared in
// dir since the before snapshot. In-flight partial downloads (browser
// temporary suffixes) are skipped.
func newestAddition(dir string, before map[string]struct{}) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", schemas.NewProviderError("image download", "cannot re-read downloads directory", err)
	}
	var (
		newest     string
		newestTime int64
	)
	for _, e := range entries {
		name := e.Name()
		if _, seen := before[name]; seen || e.IsDir() {
			continue
		}
		if filepath.Ext(name) == ".crdownload" || filepath.Ext(name) == ".tmp" {
			continue
		}
		info, ierr := e.Info()
		if ierr != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestTime {
			newest = filepath.Join(dir, name)
			newestTime = mod
		}
	}
	if newest == "" {
		return "", schemas.NewProviderError("image download", "no downloaded image found", nil)
	}
	return newest, nil
}

// moveFile renames, falling back to copy-and-remove across filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
