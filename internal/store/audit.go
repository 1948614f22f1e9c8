package store

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"polyagent/internal/store/model"
)

// LogConfigChange 记录一次热重载:改了哪些键,有没有被接受。
func (s *Store) LogConfigChange(ctx context.Context, changedPaths []string, accepted bool, note string) error {
	paths, err := json.Marshal(changedPaths)
	if err != nil {
		return err
	}
	entry := model.ConfigAuditModel{
		Timestamp:    time.Now().Unix(),
		ChangedPaths: datatypes.JSON(paths),
		Accepted:     accepted,
		Note:         note,
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}
