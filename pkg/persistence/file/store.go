package file

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// readEntity loads one JSON document. A missing file yields (nil, nil) so
// repositories can map absence to their own not-found semantics.
func readEntity[T any](root, dir, id string) (*T, error) {
	filePath := filepath.Clean(path.Join(root, dir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read %s %s: %w", dir, id, err)
	}

	var entity T

	err = json.Unmarshal(body, &entity)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", dir, id, err)
	}

	return &entity, nil
}

// writeEntity stores one JSON document, creating the entity directory on demand.
func writeEntity(root, dir, id string, entity any) error {
	err := os.MkdirAll(path.Join(root, dir), 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", dir, id, err)
	}

	return os.WriteFile(path.Join(root, dir, id+".json"), data, 0600)
}

// removeEntity deletes one JSON document. Removing an absent file is not an error.
func removeEntity(root, dir, id string) error {
	err := os.Remove(path.Join(root, dir, id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s %s: %w", dir, id, err)
	}

	return nil
}

// listEntities loads every JSON document of one entity directory.
func listEntities[T any](root, dir string) ([]*T, error) {
	entityFS := os.DirFS(path.Join(root, dir))

	jsonFiles, err := fs.Glob(entityFS, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", dir, err)
	}

	entities := make([]*T, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-5] // Remove .json extension

		entity, err := readEntity[T](root, dir, id)
		if err != nil {
			return nil, err
		}

		if entity != nil {
			entities = append(entities, entity)
		}
	}

	return entities, nil
}
