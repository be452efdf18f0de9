package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/ini.v1"
)

type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetRegion(ctx context.Context, profile string) (string, error)
}

// cfgRegistry reads profiles from the AWS shared config and credentials files.
type cfgRegistry struct {
	config      *ini.File
	credentials *ini.File
}

func DefaultPaths() (configPath, credentialsPath string) {
	if p := os.Getenv("AWS_CONFIG_FILE"); p != "" {
		configPath = p
	}
	if p := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); p != "" {
		credentialsPath = p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return configPath, credentialsPath
	}
	if configPath == "" {
		configPath = filepath.Join(home, ".aws", "config")
	}
	if credentialsPath == "" {
		credentialsPath = filepath.Join(home, ".aws", "credentials")
	}
	return configPath, credentialsPath
}

// NewRegistry loads whichever of the two files exist.
func NewRegistry(configPath, credentialsPath string) (Registry, error) {
	cr := &cfgRegistry{}
	var err error
	if cr.config, err = loadOptional(configPath); err != nil {
		return nil, err
	}
	if cr.credentials, err = loadOptional(credentialsPath); err != nil {
		return nil, err
	}
	if cr.config == nil && cr.credentials == nil {
		return nil, fmt.Errorf("no AWS config found at %s or %s", configPath, credentialsPath)
	}
	return cr, nil
}

func loadOptional(path string) (*ini.File, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	add := func(name string) {
		if !slices.Contains(profiles, name) {
			profiles = append(profiles, name)
		}
	}
	if cr.config != nil {
		for _, section := range cr.config.Sections() {
			if len(section.Keys()) == 0 {
				continue
			}
			if name, ok := profileName(section.Name()); ok {
				add(name)
			}
		}
	}
	if cr.credentials != nil {
		for _, section := range cr.credentials.Sections() {
			if len(section.Keys()) > 0 && section.Name() != ini.DefaultSection {
				add(section.Name())
			}
		}
	}
	slices.Sort(profiles)
	return profiles, nil
}

func (cr *cfgRegistry) GetRegion(ctx context.Context, profile string) (string, error) {
	profiles, err := cr.GetProfiles(ctx)
	if err != nil {
		return "", err
	}
	if !slices.Contains(profiles, profile) {
		return "", fmt.Errorf("profile %s not found", profile)
	}
	if cr.config == nil {
		return "", nil
	}
	name := "profile " + profile
	if profile == "default" {
		name = "default"
	}
	section, err := cr.config.GetSection(name)
	if err != nil {
		return "", nil
	}
	return section.Key("region").String(), nil
}

func profileName(section string) (string, bool) {
	switch {
	case section == "default":
		return section, true
	case strings.HasPrefix(section, "profile "):
		return strings.TrimSpace(strings.TrimPrefix(section, "profile ")), true
	default:
		return "", false
	}
}
