package mixdown

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeProject parses a project saved as .json by the editor, falling back
// to .yml.
func DecodeProject(data []byte) (Project, error) {
	var project Project
	if errJSON := json.Unmarshal(data, &project); errJSON != nil {
		project = Project{}
		if errYaml := yaml.Unmarshal(data, &project); errYaml != nil {
			return Project{}, fmt.Errorf("the project could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if project.TimeSignature.Denominator == 0 {
		project.TimeSignature.Denominator = 4
	}
	return project, nil
}

// LoadProject reads and decodes a project file.
func LoadProject(filename string) (Project, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Project{}, fmt.Errorf("could not read file %v: %w", filename, err)
	}
	project, err := DecodeProject(data)
	if err != nil {
		return Project{}, fmt.Errorf("%v: %w", filename, err)
	}
	return project, nil
}
