package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Profile values contain ';', so inline comments are disabled.
var iniOptions = ini.LoadOptions{IgnoreInlineComment: true}

// LoadINI reads an INI file over DefaultConfig. Sections are [run],
// [solver], [initial], [reactor], [control], [profiles], [open_loop] and
// [tank]; missing keys keep their defaults.
func LoadINI(path string) (*Config, error) {
	file, err := ini.LoadSources(iniOptions, path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := loadCfg(file, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func loadCfg(file *ini.File, cfg *Config) error {
	run := file.Section("run")
	cfg.Model = run.Key("model").MustString(cfg.Model)
	cfg.Integrator = run.Key("integrator").MustString(cfg.Integrator)
	cfg.Duration = run.Key("duration").MustFloat64(cfg.Duration)
	cfg.Samples = run.Key("samples").MustInt(cfg.Samples)
	cfg.Retries = run.Key("retries").MustInt(cfg.Retries)

	sections := []struct {
		name string
		dst  interface{}
	}{
		{"solver", &cfg.Solver},
		{"initial", &cfg.InitState},
		{"reactor", &cfg.Reactor},
		{"control", &cfg.Control},
		{"profiles", &cfg.Profiles},
		{"open_loop", &cfg.OpenLoop},
		{"tank", &cfg.Tank},
	}
	for _, s := range sections {
		if !file.HasSection(s.name) {
			continue
		}
		if err := file.Section(s.name).MapTo(s.dst); err != nil {
			return fmt.Errorf("section [%s]: %w", s.name, err)
		}
	}
	return nil
}

func SaveINI(path string, cfg *Config) error {
	file := ini.Empty(iniOptions)

	run := file.Section("run")
	for _, kv := range [][2]string{
		{"model", cfg.Model},
		{"integrator", cfg.Integrator},
		{"duration", fmt.Sprint(cfg.Duration)},
		{"samples", fmt.Sprint(cfg.Samples)},
		{"retries", fmt.Sprint(cfg.Retries)},
	} {
		if _, err := run.NewKey(kv[0], kv[1]); err != nil {
			return err
		}
	}

	sections := []struct {
		name string
		src  interface{}
	}{
		{"solver", &cfg.Solver},
		{"initial", &cfg.InitState},
		{"reactor", &cfg.Reactor},
		{"control", &cfg.Control},
		{"profiles", &cfg.Profiles},
		{"open_loop", &cfg.OpenLoop},
		{"tank", &cfg.Tank},
	}
	for _, s := range sections {
		if err := file.Section(s.name).ReflectFrom(s.src); err != nil {
			return fmt.Errorf("section [%s]: %w", s.name, err)
		}
	}
	return file.SaveTo(path)
}
