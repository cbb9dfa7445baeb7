package fonts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/samber/lo"

	"dco-creatives/internal/logging"
)

var ErrUnsupportedPlatform = errors.New("fonts: unsupported platform")

// Installer copies bundled font files into the user font directory so the
// headless browser can resolve the families the templates use.
type Installer struct {
	src   string
	home  string
	goos  string
	log   *logging.Logger
	cache func(ctx context.Context) error
}

func NewInstaller(assetsDir string, log *logging.Logger) (*Installer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("fonts: home dir: %w", err)
	}
	return &Installer{
		src:   filepath.Join(assetsDir, "font"),
		home:  home,
		goos:  runtime.GOOS,
		log:   log,
		cache: fcCache,
	}, nil
}

func (i *Installer) userDir() (string, error) {
	switch i.goos {
	case "linux":
		return filepath.Join(i.home, ".local", "share", "fonts"), nil
	case "darwin":
		return filepath.Join(i.home, "Library", "Fonts"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, i.goos)
	}
}

func (i *Installer) systemDirs() []string {
	if i.goos == "darwin" {
		return []string{"/System/Library/Fonts", "/Library/Fonts"}
	}
	return []string{"/usr/share/fonts", "/usr/local/share/fonts"}
}

// Install makes sure every file is available to the system and returns the
// files that are. A font that cannot be copied is logged and left out; only
// an unsupported platform is an error.
func (i *Installer) Install(ctx context.Context, files []string) ([]string, error) {
	dir, err := i.userDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fonts: %w", err)
	}

	var ready []string
	copied := 0
	for _, file := range lo.Uniq(files) {
		if i.installed(dir, file) {
			i.log.Debugf("fonts: %s already installed", file)
			ready = append(ready, file)
			continue
		}
		if err := copyFile(filepath.Join(i.src, file), filepath.Join(dir, file)); err != nil {
			i.log.Errorf("fonts: install %s: %v", file, err)
			continue
		}
		i.log.Infof("fonts: installed %s", file)
		ready = append(ready, file)
		copied++
	}

	if copied > 0 && i.goos == "linux" {
		if err := i.cache(ctx); err != nil {
			i.log.Warnf("fonts: font cache not refreshed: %v", err)
		}
	}
	return ready, nil
}

func (i *Installer) installed(userDir, file string) bool {
	if _, err := os.Stat(filepath.Join(userDir, file)); err == nil {
		return true
	}
	return lo.SomeBy(i.systemDirs(), func(dir string) bool { return findFile(dir, file) })
}

// findFile searches root recursively for a file named name, ignoring case.
func findFile(root, name string) bool {
	found := false
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return fs.SkipDir
		}
		if !d.IsDir() && strings.EqualFold(d.Name(), name) {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func fcCache(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "fc-cache", "-f").CombinedOutput()
	if err != nil {
		return fmt.Errorf("fc-cache: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
