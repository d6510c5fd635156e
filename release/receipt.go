package release

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// ReceiptName is the file, inside the install root, describing what was staged.
const ReceiptName = "receipt.json"

// Receipt records the release staged in an install root.
// Packaging never reads it back; it's there for `stagebin verify` and humans.
type Receipt struct {
	Tag       string            `json:"tag"`
	Version   string            `json:"version"`
	Artifacts []ReceiptArtifact `json:"artifacts"`
}

// ReceiptArtifact describes one staged artifact.
type ReceiptArtifact struct {
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
	Slug     string `json:"slug"`
	Binary   string `json:"binary"`
	URL      string `json:"url"`
	// BLAKE3 is the hex encoded digest of the binary.
	BLAKE3 string `json:"blake3"`
}

func newReceipt(root string, info VersionInfo, artifacts []staged) (*Receipt, error) {
	receipt := Receipt{
		Tag:       info.Tag,
		Version:   info.Version,
		Artifacts: make([]ReceiptArtifact, 0, len(artifacts)),
	}

	for _, artifact := range artifacts {
		digest, err := digestFile(filepath.Join(root, artifact.Slug, artifact.Binary))
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", artifact.Slug, err)
		}

		receipt.Artifacts = append(receipt.Artifacts, ReceiptArtifact{
			Platform: artifact.Platform,
			Arch:     artifact.Arch,
			Slug:     artifact.Slug,
			Binary:   artifact.Binary,
			URL:      artifact.URL,
			BLAKE3:   digest,
		})
	}

	return &receipt, nil
}

// ReadReceipt loads the receipt at path.
func ReadReceipt(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}

	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("invalid receipt %s: %w", path, err)
	}
	return &receipt, nil
}

// Write stores the receipt at path.
func (r *Receipt) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	return nil
}

// Verify recomputes the digest of every artifact under root and fails on the
// first one that doesn't match.
func (r *Receipt) Verify(root string) error {
	for _, artifact := range r.Artifacts {
		path := filepath.Join(root, artifact.Slug, artifact.Binary)

		digest, err := digestFile(path)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", path, err)
		}
		if digest != artifact.BLAKE3 {
			return fmt.Errorf("%s doesn't match the receipt: got %s, want %s", path, digest, artifact.BLAKE3)
		}
	}
	return nil
}

func digestFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
