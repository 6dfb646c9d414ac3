// Package store persists each Item and its PRD to a per-item directory,
// reading and writing JSON with schema validation, and the plain-text
// phase artifacts (research.md, plan.md, progress.log) alongside them.
//
// The atomic-write and directory-layout approach is grounded on the
// teacher's internal/state package (writeFileAtomic, EnsureDir); schema
// validation uses struct tags via go-playground/validator instead of the
// teacher's hand-rolled field checks, since Item/PRD are real domain
// schemas rather than a free-form phase config.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jorge-barreto/wreckit/internal/werr"
	"github.com/jorge-barreto/wreckit/internal/workitem"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Repository persists items and PRDs under root/items/<id>/.
type Repository struct {
	Root string
}

// New returns a Repository rooted at root (typically <project>/.wreckit).
func New(root string) *Repository {
	return &Repository{Root: root}
}

// ItemDir returns the directory owning the item's artifacts.
func (r *Repository) ItemDir(id string) string {
	return filepath.Join(r.Root, "items", id)
}

func (r *Repository) itemPath(id string) string { return filepath.Join(r.ItemDir(id), "item.json") }
func (r *Repository) prdPath(id string) string  { return filepath.Join(r.ItemDir(id), "prd.json") }

// EnsureItemDir creates the directory for id if it does not exist.
func (r *Repository) EnsureItemDir(id string) error {
	return os.MkdirAll(r.ItemDir(id), 0755)
}

// LoadItem reads item.json. Returns (nil, nil) if it does not exist.
func (r *Repository) LoadItem(id string) (*workitem.Item, error) {
	data, err := os.ReadFile(r.itemPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var it workitem.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, werr.Wrap(werr.KindInvalidItem, err, "item.json is not valid JSON")
	}
	if err := validate.Struct(&it); err != nil {
		return nil, werr.Wrap(werr.KindInvalidItem, err, "item.json failed schema validation")
	}
	return &it, nil
}

// SaveItem validates and writes item.json atomically, stamping UpdatedAt.
func (r *Repository) SaveItem(it *workitem.Item, now time.Time) error {
	it.UpdatedAt = now
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	if err := validate.Struct(it); err != nil {
		return werr.Wrap(werr.KindInvalidItem, err, "refusing to save invalid item")
	}
	if err := r.EnsureItemDir(it.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(r.itemPath(it.ID), data, 0644)
}

// LoadPRD reads prd.json, repairing priorities per §3. Returns (nil, nil)
// if it does not exist.
func (r *Repository) LoadPRD(id string) (*workitem.PRD, error) {
	data, err := os.ReadFile(r.prdPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var prd workitem.PRD
	if err := json.Unmarshal(data, &prd); err != nil {
		return nil, werr.Wrap(werr.KindInvalidPrd, err, "prd.json is not valid JSON")
	}
	prd.Repair()
	if err := r.validatePRD(&prd, id); err != nil {
		return nil, err
	}
	return &prd, nil
}

// SavePRD validates and writes prd.json atomically (write-temp-then-rename).
func (r *Repository) SavePRD(prd *workitem.PRD) error {
	prd.Repair()
	if err := r.validatePRD(prd, prd.ID); err != nil {
		return err
	}
	if err := r.EnsureItemDir(prd.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prd, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(r.prdPath(prd.ID), data, 0644)
}

func (r *Repository) validatePRD(prd *workitem.PRD, expectedID string) error {
	if err := validate.Struct(prd); err != nil {
		return werr.Wrap(werr.KindInvalidPrd, err, "prd.json failed schema validation")
	}
	if prd.ID != expectedID {
		return werr.New(werr.KindInvalidPrd, fmt.Sprintf("prd.json id %q does not match item id %q", prd.ID, expectedID))
	}
	if !prd.UniqueStoryIDs() {
		return werr.New(werr.KindInvalidPrd, "prd.json has duplicate story ids")
	}
	return nil
}

// HasPRD reports whether prd.json exists for id.
func (r *Repository) HasPRD(id string) bool {
	_, err := os.Stat(r.prdPath(id))
	return err == nil
}
