// Package store is the Reader/Writer (C3) over the engine's own control
// tables: rapo_config (+ rapo_config_bak audit trail), rapo_log,
// rapo_scheduler, rapo_web_api, and rapo_checkpoint. Every update of an
// existing rapo_config row is archived into rapo_config_bak first;
// DeleteConfig removes a row without archiving it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/gateway"
)

type Store struct {
	gw *gateway.Gateway
}

func New(gw *gateway.Gateway) *Store {
	return &Store{gw: gw}
}

// GetConfig fetches one control by name.
func (s *Store) GetConfig(ctx context.Context, name string) (*domain.ControlConfig, error) {
	var cfg domain.ControlConfig
	err := s.gw.DB.GetContext(ctx, &cfg, s.gw.Rebind(`SELECT * FROM rapo_config WHERE control_name = ?`), name)
	if err != nil {
		return nil, fmt.Errorf("get config %q: %w", name, wrapNotFound(err, domain.ErrControlNotFound))
	}
	return &cfg, nil
}

// GetConfigByID fetches one control by its surrogate key.
func (s *Store) GetConfigByID(ctx context.Context, id int64) (*domain.ControlConfig, error) {
	var cfg domain.ControlConfig
	err := s.gw.DB.GetContext(ctx, &cfg, s.gw.Rebind(`SELECT * FROM rapo_config WHERE control_id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("get config %d: %w", id, wrapNotFound(err, domain.ErrControlNotFound))
	}
	return &cfg, nil
}

// ListConfigs returns every control, optionally filtered by group.
func (s *Store) ListConfigs(ctx context.Context, group string) ([]domain.ControlConfig, error) {
	var out []domain.ControlConfig
	var err error
	if group == "" {
		err = s.gw.DB.SelectContext(ctx, &out, `SELECT * FROM rapo_config ORDER BY control_name`)
	} else {
		err = s.gw.DB.SelectContext(ctx, &out,
			s.gw.Rebind(`SELECT * FROM rapo_config WHERE control_group = ? ORDER BY control_name`), group)
	}
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	return out, nil
}

// SaveConfig upserts a control, keyed by cfg.ControlID: a non-zero id
// that matches a row updates it, otherwise a new row is inserted. An
// existing row is archived into rapo_config_bak (keyed by the archive
// timestamp) before being overwritten, so every version of a control
// remains queryable.
func (s *Store) SaveConfig(ctx context.Context, cfg *domain.ControlConfig) error {
	var existing *domain.ControlConfig
	err := domain.ErrControlNotFound
	if cfg.ControlID != 0 {
		existing, err = s.GetConfigByID(ctx, cfg.ControlID)
	}
	switch {
	case err == nil:
		if err := s.archiveConfig(ctx, existing); err != nil {
			return err
		}
		cfg.ControlID = existing.ControlID
		cfg.CreatedDate = existing.CreatedDate
		cfg.UpdatedDate = time.Now()
		_, err = s.gw.DB.NamedExecContext(ctx, updateConfigSQL, cfg)
		if err != nil {
			return fmt.Errorf("update config %q: %w", cfg.ControlName, err)
		}
	case errors.Is(err, domain.ErrControlNotFound):
		cfg.CreatedDate = time.Now()
		cfg.UpdatedDate = cfg.CreatedDate
		_, err = s.gw.DB.NamedExecContext(ctx, insertConfigSQL, cfg)
		if err != nil {
			return fmt.Errorf("insert config %q: %w", cfg.ControlName, err)
		}
	default:
		return err
	}
	return nil
}

// DeleteConfig removes a control's config row. It does not touch its
// output/result tables; callers drive that separately (§6.2
// delete-control-output-tables, delete-control-temporary-tables).
func (s *Store) DeleteConfig(ctx context.Context, name string) error {
	res, err := s.gw.Execute(ctx, `DELETE FROM rapo_config WHERE control_name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete config %q: %w", name, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrControlNotFound
	}
	return nil
}

func (s *Store) archiveConfig(ctx context.Context, cfg *domain.ControlConfig) error {
	_, err := s.gw.DB.NamedExecContext(ctx, `
		INSERT INTO rapo_config_bak
		SELECT c.*, CURRENT_TIMESTAMP AS audit_date FROM rapo_config c WHERE c.control_id = :control_id`,
		cfg)
	if err != nil {
		return fmt.Errorf("archive config %q: %w", cfg.ControlName, err)
	}
	return nil
}

// ConfigVersions returns a control's archived rows, newest first (§6.2
// get-control-versions).
func (s *Store) ConfigVersions(ctx context.Context, controlID int64) ([]domain.ControlConfig, error) {
	var out []domain.ControlConfig
	err := s.gw.DB.SelectContext(ctx, &out,
		s.gw.Rebind(`SELECT * FROM rapo_config_bak WHERE control_id = ? ORDER BY audit_date DESC`), controlID)
	if err != nil {
		return nil, fmt.Errorf("config versions %d: %w", controlID, err)
	}
	return out, nil
}
