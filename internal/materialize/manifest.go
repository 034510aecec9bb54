package materialize

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"shards/internal/shards"
	"shards/util"
)

const ManifestName = "bundles.json"

// ManifestBundle describes one written bundle, paths relative to the project root.
type ManifestBundle struct {
	Root    string   `json:"root"`
	Output  string   `json:"output"`
	Lazy    bool     `json:"lazy"`
	Members []string `json:"members"`
}

type Manifest struct {
	Entry   string           `json:"entry"`
	Bundles []ManifestBundle `json:"bundles"`
}

// WriteManifest records the plan next to the bundles as bundles.json.
func (m *Materializer) WriteManifest(plan *shards.Plan, outputs []string) (string, error) {
	manifest := Manifest{Entry: util.RelOrAbs(m.root, plan.Entry)}
	for i, b := range plan.Bundles {
		mb := ManifestBundle{
			Root:    util.RelOrAbs(m.root, b.Root),
			Lazy:    b.Lazy,
			Members: []string{},
		}
		if i < len(outputs) {
			mb.Output = util.RelOrAbs(m.dest, outputs[i])
		}
		for _, p := range b.Paths() {
			mb.Members = append(mb.Members, util.RelOrAbs(m.root, p))
		}
		manifest.Bundles = append(manifest.Bundles, mb)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal manifest")
	}
	path := filepath.Join(m.dest, ManifestName)
	if err := os.MkdirAll(m.dest, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", m.dest)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}
