package status

import (
	"os"
	"path/filepath"

	"github.com/dusk-indust/convforge/internal/conversation"
	"github.com/dusk-indust/convforge/internal/dataset"
	"github.com/dusk-indust/convforge/internal/scenario"
)

// ScenarioInfo describes one loaded scenario file.
type ScenarioInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SeedTurns   int    `json:"seedTurns"`
	Generations int    `json:"generations"`
}

// Report combines the scenario inventory with the state of the dataset.
type Report struct {
	ExperiencesDir   string          `json:"experiencesDir"`
	ScenariosFound   bool            `json:"scenariosFound"`
	Scenarios        []ScenarioInfo  `json:"scenarios"`
	TotalGenerations int             `json:"totalGenerations"`
	Dataset          dataset.Stats   `json:"dataset"`
	Issues           []dataset.Issue `json:"issues,omitempty"`
}

// Collect scans the experiences directory and the dataset file. A missing
// experiences directory is reported through ScenariosFound rather than as an
// error; a scenario file that fails to parse is an error.
func Collect(experiencesDir, datasetPath string, v conversation.Validator, f conversation.Filter) (Report, error) {
	report := Report{ExperiencesDir: experiencesDir}

	if info, err := os.Stat(experiencesDir); err == nil && info.IsDir() {
		scenarios, err := scenario.LoadDir(experiencesDir)
		if err != nil {
			return report, err
		}
		report.ScenariosFound = true
		for _, s := range scenarios {
			report.Scenarios = append(report.Scenarios, ScenarioInfo{
				Name:        s.Name,
				Description: s.Description,
				SeedTurns:   len(s.Dialogue),
				Generations: s.Generations,
			})
		}
		report.TotalGenerations = scenario.TotalGenerations(scenarios)
	}

	stats, issues, err := dataset.Scan(datasetPath, v, f)
	if err != nil {
		return report, err
	}
	report.Dataset = stats
	report.Issues = issues
	return report, nil
}

// DatasetFile is the base name of the dataset path, for display.
func (r Report) DatasetFile() string {
	return filepath.Base(r.Dataset.Path)
}
