package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConsoleConfigYAML is the console-config.yaml shape. Environment
// variables override the postgres and polygon sections at load time.
type ConsoleConfigYAML struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	DataDir  string `yaml:"data_dir"`
	Postgres struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"db_name"`
	} `yaml:"postgres"`
	Polygon struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"polygon"`
}

func LoadConsoleConfig(path string) (*ConsoleConfigYAML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read console config: %v", err)
	}

	var config ConsoleConfigYAML
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal console config: %v", err)
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}

	if config.DataDir == "" {
		config.DataDir = "data"
	}

	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		config.Postgres.Host = v
	}

	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		config.Postgres.Password = v
	}

	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		config.Polygon.APIKey = v
	}

	return &config, nil
}
