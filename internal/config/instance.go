package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoWebServer indicates an instance config without a usable web_server block.
var ErrNoWebServer = errors.New("instance config has no web_server")

// WebServer is the agent's local HTTP endpoint.
type WebServer struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// InstanceConfig is the part of an agent's config.json regctl reads.
type InstanceConfig struct {
	Provider  json.RawMessage `json:"provider"`
	WebServer *WebServer      `json:"web_server"`
}

// ReadInstanceConfig decodes file inside instanceDir.
func ReadInstanceConfig(instanceDir, file string) (*InstanceConfig, error) {
	data, err := os.ReadFile(filepath.Join(instanceDir, file))
	if err != nil {
		return nil, fmt.Errorf("reading instance config: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var ic InstanceConfig
	if err := json.Unmarshal(data, &ic); err != nil {
		return nil, fmt.Errorf("parsing instance config: %w", err)
	}
	return &ic, nil
}

// RefreshURL joins the web server address with refreshPath.
func (ic *InstanceConfig) RefreshURL(refreshPath string) (string, error) {
	ws := ic.WebServer
	if ws == nil || ws.Port <= 0 || ws.Port > 65535 {
		return "", ErrNoWebServer
	}
	host := strings.TrimSpace(ws.Host)
	switch host {
	case "", "0.0.0.0", "::", "*":
		host = "127.0.0.1"
	}
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, strconv.Itoa(ws.Port)),
		Path:   path.Join("/", refreshPath),
	}
	return u.String(), nil
}
