package mediaproc

import (
	"os"
	"os/exec"
	"path/filepath"
)

// ToolResolver locates the external prober and transcoder binaries used for
// video/audio perceptual processing, following the resolution order in
// spec.md §4.3: explicit config path, bundled path next to the running
// binary, bundled path under the working directory, then PATH lookup.
type ToolResolver struct {
	proberConfigPath     string
	transcoderConfigPath string
}

// NewToolResolver builds a resolver from the configured override paths.
// Pass "" for either to fall back entirely to the bundled/PATH search.
func NewToolResolver(proberConfigPath, transcoderConfigPath string) *ToolResolver {
	return &ToolResolver{
		proberConfigPath:     proberConfigPath,
		transcoderConfigPath: transcoderConfigPath,
	}
}

// Prober resolves the duration-probing binary, or ok=false if none is found.
func (r *ToolResolver) Prober() (path string, ok bool) {
	return resolve(r.proberConfigPath, "ffprobe")
}

// Transcoder resolves the frame/PCM-extraction binary, or ok=false if none
// is found.
func (r *ToolResolver) Transcoder() (path string, ok bool) {
	return resolve(r.transcoderConfigPath, "ffmpeg")
}

func resolve(configPath, binaryName string) (string, bool) {
	if configPath != "" {
		if fileExecutable(configPath) {
			return configPath, true
		}
	}

	if exe, err := os.Executable(); err == nil {
		bundled := filepath.Join(filepath.Dir(exe), binaryName)
		if fileExecutable(bundled) {
			return bundled, true
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		bundled := filepath.Join(cwd, binaryName)
		if fileExecutable(bundled) {
			return bundled, true
		}
	}

	if found, err := exec.LookPath(binaryName); err == nil {
		return found, true
	}

	return "", false
}

func fileExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return true
}
