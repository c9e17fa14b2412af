package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

// DeviceIDFileName is the file holding the device UUID inside the data dir.
const DeviceIDFileName = "device_id"

// HostIdentity answers DeviceIdentity for the machine the process runs on.
// The UUID is generated once and kept in a file so it survives restarts.
type HostIdentity struct {
	path   string
	goos   string
	goarch string
	logger logger.Logger

	mu sync.Mutex
	id string
}

// NewHostIdentity loads the device UUID from dir, creating it when absent.
func NewHostIdentity(dir string, log logger.Logger) (*HostIdentity, error) {
	if log == nil {
		log = logger.Default()
	}
	h := &HostIdentity{
		path:   filepath.Join(dir, DeviceIDFileName),
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
		logger: log.With("component", "identity"),
	}
	if err := h.load(dir); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *HostIdentity) load(dir string) error {
	data, err := os.ReadFile(h.path)
	switch {
	case err == nil:
		id, perr := uuid.Parse(strings.TrimSpace(string(data)))
		if perr == nil {
			h.id = id.String()
			return nil
		}
		h.logger.Warn("device id file is corrupt, generating a new id", "path", h.path)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read device id: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	id := uuid.NewString()
	if err := os.WriteFile(h.path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("write device id: %w", err)
	}
	h.id = id
	h.logger.Info("device id generated", "path", h.path)
	return nil
}

// DeviceIdentity implements service.DeviceIdentityProvider.
func (h *HostIdentity) DeviceIdentity() domain.DeviceIdentity {
	h.mu.Lock()
	defer h.mu.Unlock()
	return domain.DeviceIdentity{
		UUID:       h.id,
		PlatformID: h.goos + "/" + h.goarch,
		OSName:     osName(h.goos),
	}
}

// osName maps GOOS values onto the names the server knows.
func osName(goos string) string {
	switch goos {
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	case "android":
		return "Android"
	case "ios":
		return "iOS"
	default:
		return goos
	}
}
