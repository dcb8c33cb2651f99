package config

import (
	"fmt"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
)

const paramFilename = "param.yaml"
const defaultImagesFolder = "images"
const labelsFilename = "labels.json"

type ServerConfig struct {
	ConfigDir      string
	DebugMode      bool
	SimulationMode bool
	WindowedMode   bool

	*ServerParam
}

// NewServerConfig opens (or creates) the config folder and its param file.
// A non empty imagesFolder overrides the param file value.
func NewServerConfig(configDir string, debugMode bool, simulationMode bool, windowedMode bool, imagesFolder string) (*ServerConfig, error) {
	serverConfig := &ServerConfig{
		ConfigDir:      configDir,
		DebugMode:      debugMode,
		SimulationMode: simulationMode,
		WindowedMode:   windowedMode,
	}

	// Check Configuration folder
	_, err := os.Stat(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Printf("Creation of config folder: %s", configDir)
			err = os.MkdirAll(configDir, 0770)
			if err != nil {
				return nil, fmt.Errorf("unable to create config folder: %w", err)
			}
		} else {
			return nil, fmt.Errorf("unable to access config folder %s: %w", configDir, err)
		}
	}

	// Defaults first, param file values override them
	serverConfig.ServerParam = &ServerParam{}
	err = yaml.Unmarshal(ParamDefaultFile, serverConfig.ServerParam)
	if err != nil {
		return nil, fmt.Errorf("unable to interpret default param file: %w", err)
	}

	// Open param file
	rawConfig, err := os.ReadFile(serverConfig.GetCompleteParamFilename())
	if err == nil {
		// Interpret param file
		err = yaml.Unmarshal(rawConfig, serverConfig.ServerParam)
		if err != nil {
			return nil, fmt.Errorf("unable to interpret param file: %w", err)
		}
	} else if os.IsNotExist(err) {
		// Create default param file
		logrus.Infof("Create default param file")
		err = os.WriteFile(serverConfig.GetCompleteParamFilename(), ParamDefaultFile, 0660)
		if err != nil {
			logrus.Warnf("Unable to save default param file: %v", err)
		}
	} else {
		return nil, fmt.Errorf("unable to read param file: %w", err)
	}

	if imagesFolder != "" {
		serverConfig.ImagesFolder = imagesFolder
	}
	if serverConfig.ImagesFolder == "" {
		serverConfig.ImagesFolder = filepath.Join(configDir, defaultImagesFolder)
	}
	serverConfig.ImagesFolder, err = expandFolder(serverConfig.ImagesFolder)
	if err != nil {
		return nil, err
	}

	err = serverConfig.ServerParam.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid param file %s: %w", serverConfig.GetCompleteParamFilename(), err)
	}

	return serverConfig, nil
}

func (sc *ServerConfig) GetCompleteParamFilename() string {
	return filepath.Join(sc.ConfigDir, paramFilename)
}

// LabelsFileCandidates lists where a labels file is looked for, by priority.
func (sc *ServerConfig) LabelsFileCandidates() []string {
	var candidates []string
	if sc.LabelsFile != "" {
		candidates = append(candidates, sc.LabelsFile)
	}
	return append(candidates,
		filepath.Join(sc.ImagesFolder, labelsFilename),
		filepath.Join(filepath.Dir(sc.ImagesFolder), labelsFilename),
		filepath.Join(sc.ConfigDir, labelsFilename),
	)
}

func expandFolder(folder string) (string, error) {
	if len(folder) > 1 && folder[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("unable to expand %s: %w", folder, err)
		}
		folder = filepath.Join(home, folder[2:])
	}
	return filepath.Abs(folder)
}
