package utils

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadPrompt loads prompt instructions from a specific file path
// The path must be exact - no fallback searching is performed
func LoadPrompt(filePath string) (string, error) {
	content, err := readExisting(filePath)
	if err != nil {
		return "", err
	}

	prompt := strings.TrimSpace(string(content))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %s is empty", filePath)
	}
	return prompt, nil
}

// LoadPromptWithFallback returns the prompt at filePath, or fallback when the
// path is empty or the file cannot be used
func LoadPromptWithFallback(filePath, fallback string) string {
	if filePath == "" {
		return fallback
	}

	content, err := LoadPrompt(filePath)
	if err != nil {
		log.Printf("[UTILS]: Warning, using built-in prompt: %v\n", err)
		return fallback
	}
	return content
}

// LoadYAML decodes the YAML file at filePath into out
func LoadYAML(filePath string, out any) error {
	content, err := readExisting(filePath)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(content, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return nil
}

// readExisting reads a file, distinguishing a missing file from a read failure
func readExisting(filePath string) ([]byte, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return content, nil
}
