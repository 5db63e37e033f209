// Package config loads the tool configuration. Every path the provisioner
// touches arrives through here, never read ad hoc, so tests can point the
// whole tool at a scratch directory.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is where the optional configuration file lives on a node.
const DefaultPath = "/etc/rpi-compute-node/config.toml"

// Config carries every injected path and target-state list. All fields
// have defaults; the file only overrides.
type Config struct {
	BootConfig      string `toml:"boot_config"`
	BootCmdline     string `toml:"boot_cmdline"`
	BlacklistFile   string `toml:"blacklist_file"`
	OSRelease       string `toml:"os_release"`
	DeviceTreeModel string `toml:"device_tree_model"`
	TargetUser      string `toml:"target_user"`

	DockerKeyURL  string `toml:"docker_key_url"`
	DockerKeyring string `toml:"docker_keyring"`
	DockerList    string `toml:"docker_list"`

	PurgePackages   []string `toml:"purge_packages"`
	DisableServices []string `toml:"disable_services"`
}

// Default returns the built-in configuration for a current Raspberry Pi OS
// image (bookworm layout, boot files under /boot/firmware).
func Default() Config {
	return Config{
		BootConfig:      "/boot/firmware/config.txt",
		BootCmdline:     "/boot/firmware/cmdline.txt",
		BlacklistFile:   "/etc/modprobe.d/rpi-compute-node.conf",
		OSRelease:       "/etc/os-release",
		DeviceTreeModel: "/proc/device-tree/model",
		TargetUser:      "pi",
		DockerKeyURL:    "https://download.docker.com/linux/debian/gpg",
		DockerKeyring:   "/etc/apt/keyrings/docker.asc",
		DockerList:      "/etc/apt/sources.list.d/docker.list",
		PurgePackages: []string{
			"triggerhappy",
			"bluez",
			"avahi-daemon",
			"wpasupplicant",
			"rpi-connect",
			"modemmanager",
		},
		DisableServices: []string{
			"triggerhappy",
			"bluetooth",
			"hciuart",
			"avahi-daemon",
			"wpa_supplicant",
		},
	}
}

// Load reads the configuration file at path over the defaults. A missing
// file is not an error: the defaults describe a stock image.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations with blank required paths.
func Validate(cfg Config) error {
	required := map[string]string{
		"boot_config":    cfg.BootConfig,
		"boot_cmdline":   cfg.BootCmdline,
		"blacklist_file": cfg.BlacklistFile,
		"os_release":     cfg.OSRelease,
		"target_user":    cfg.TargetUser,
		"docker_key_url": cfg.DockerKeyURL,
		"docker_keyring": cfg.DockerKeyring,
		"docker_list":    cfg.DockerList,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("config missing %s", field)
		}
	}
	return nil
}
