package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is the optional YAML overlay for retrieval parameters. Absent keys keep the env values.
type Tuning struct {
	CandidateK   *int     `yaml:"candidate_k"`
	RerankK      *int     `yaml:"rerank_k"`
	Threshold    *float64 `yaml:"threshold"`
	ChunkSize    *int     `yaml:"chunk_size"`
	ChunkOverlap *int     `yaml:"chunk_overlap"`
}

// ApplyTuningFile overlays the YAML file at path onto rag. A missing file is not an error.
func ApplyTuningFile(rag *RagConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	t.apply(rag)
	return nil
}

func (t Tuning) apply(rag *RagConfig) {
	if t.CandidateK != nil {
		rag.CandidateK = *t.CandidateK
	}
	if t.RerankK != nil {
		rag.RerankK = *t.RerankK
	}
	if t.Threshold != nil {
		rag.Threshold = *t.Threshold
	}
	if t.ChunkSize != nil {
		rag.ChunkSize = *t.ChunkSize
	}
	if t.ChunkOverlap != nil {
		rag.ChunkOverlap = *t.ChunkOverlap
	}
}
