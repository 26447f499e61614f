// Package storage implementa el almacén de artefactos PDF sobre el sistema de
// archivos local. Las rutas lógicas (invoices/<número>.pdf) se resuelven bajo
// un directorio raíz configurable.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
)

// LocalStore implementa billing.ArtifactStore sobre disco local.
type LocalStore struct {
	root string
}

// NewLocalStore crea el almacén bajo root, creando el directorio si no existe.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: crear raíz %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

var _ billing.ArtifactStore = (*LocalStore)(nil)

// resolve traduce la ruta lógica a una ruta física, rechazando escapes de la raíz.
func (s *LocalStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: ruta de artefacto inválida %q", domain.ErrInvalidInput, path)
	}
	return filepath.Join(s.root, clean), nil
}

// Put escribe el artefacto. Escritura a archivo temporal + rename para que un
// lector concurrente nunca vea un PDF a medias.
func (s *LocalStore) Put(_ context.Context, path string, data []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage: crear directorio: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: crear temporal: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("storage: escribir artefacto: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: cerrar temporal: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: publicar artefacto: %w", err)
	}
	return nil
}

// Get devuelve los bytes del artefacto, o domain.ErrNotFound.
func (s *LocalStore) Get(_ context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: artefacto %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("storage: leer artefacto: %w", err)
	}
	return data, nil
}

// Exists indica si el artefacto está presente en disco.
func (s *LocalStore) Exists(_ context.Context, path string) bool {
	full, err := s.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// Remove elimina el artefacto; borrar uno inexistente es un no-op.
func (s *LocalStore) Remove(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: eliminar artefacto: %w", err)
	}
	return nil
}
