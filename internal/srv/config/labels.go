package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/jypelle/artbox/apimodel"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
	"strings"
)

var labelKeys = [][apimodel.SwitchCount]string{
	{"first", "second", "third"},
	{"0", "1", "2"},
}

// LabelLoadError reports an unusable labels file. The whole label set is discarded.
type LabelLoadError struct {
	Path string
	Err  error
}

func (e *LabelLoadError) Error() string {
	return fmt.Sprintf("unable to load labels file %s: %v", e.Path, e.Err)
}

func (e *LabelLoadError) Unwrap() error {
	return e.Err
}

// Labels holds six display strings per switch. A nil *Labels is valid and has no entry.
type Labels struct {
	Path    string
	entries [apimodel.SwitchCount][apimodel.PositionCount]string
	// null or blank entries are absent
	present [apimodel.SwitchCount][apimodel.PositionCount]bool
}

// Text returns the label of a switch (0-2) for a coordinate digit (0-5).
func (l *Labels) Text(switchIndex int, digit int) (string, bool) {
	if l == nil || switchIndex < 0 || switchIndex >= apimodel.SwitchCount || digit < 0 || digit >= apimodel.PositionCount {
		return "", false
	}
	if !l.present[switchIndex][digit] {
		return "", false
	}
	return l.entries[switchIndex][digit], true
}

// LoadLabels reads a labels file in one of these shapes:
//
//	{"first": [6 items], "second": [...], "third": [...]}   (keys are case insensitive)
//	{"0": [...], "1": [...], "2": [...]}
//	[[...], [...], [...]]
//
// Files ending in .yaml or .yml are read as YAML. A JSON array embedded in a
// javascript file (const options = [...];) is accepted too.
func LoadLabels(path string) (*Labels, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LabelLoadError{Path: path, Err: err}
	}

	var data interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		err = json.Unmarshal(raw, &data)
		if err != nil {
			start := strings.IndexByte(string(raw), '[')
			end := strings.LastIndexByte(string(raw), ']')
			if start != -1 && end > start {
				err = json.Unmarshal(raw[start:end+1], &data)
			}
		}
	}
	if err != nil {
		return nil, &LabelLoadError{Path: path, Err: err}
	}

	lists, err := labelLists(data)
	if err != nil {
		return nil, &LabelLoadError{Path: path, Err: err}
	}

	labels := &Labels{Path: path}
	for switchIndex, list := range lists {
		for digit, value := range list {
			if value == nil {
				continue
			}
			text := fmt.Sprint(value)
			if strings.TrimSpace(text) == "" {
				continue
			}
			labels.entries[switchIndex][digit] = text
			labels.present[switchIndex][digit] = true
		}
	}
	return labels, nil
}

func labelLists(data interface{}) ([apimodel.SwitchCount][]interface{}, error) {
	var lists [apimodel.SwitchCount][]interface{}

	switch d := data.(type) {
	case map[string]interface{}:
		lowered := make(map[string]interface{}, len(d))
		for k, v := range d {
			lowered[strings.ToLower(k)] = v
		}
		for _, keys := range labelKeys {
			found := true
			for i, key := range keys {
				list, ok := lowered[key].([]interface{})
				if !ok || len(list) != apimodel.PositionCount {
					found = false
					break
				}
				lists[i] = list
			}
			if found {
				return lists, nil
			}
		}
	case []interface{}:
		if len(d) == apimodel.SwitchCount {
			found := true
			for i, item := range d {
				list, ok := item.([]interface{})
				if !ok || len(list) != apimodel.PositionCount {
					found = false
					break
				}
				lists[i] = list
			}
			if found {
				return lists, nil
			}
		}
	}
	return lists, errors.New("not a recognized labels format: expected three lists of six labels")
}

// FindLabels loads the first existing candidate. Any failure means no labels
// for the whole run: numeric positions are displayed instead.
func FindLabels(candidates []string) *Labels {
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		labels, err := LoadLabels(candidate)
		if err != nil {
			logrus.Warnf("%v, using switch positions only", err)
			return nil
		}
		logrus.Infof("Loaded labels from %s", candidate)
		return labels
	}
	logrus.Infof("No labels file found, using switch positions only")
	return nil
}
