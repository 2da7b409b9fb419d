package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MariaOccupancyRepo реализует OccupancyRepo для базы данных MariaDB/MySQL.
// Использует таблицу seat_occupancy; одна строка на занятый объект.
type MariaOccupancyRepo struct {
	db *sql.DB
}

// NewMariaOccupancyRepo создает новый репозиторий для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaOccupancyRepo(ctx context.Context, dsn string) (*MariaOccupancyRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaOccupancyRepo{db: db}

	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

func (r *MariaOccupancyRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS seat_occupancy (
			object_id  CHAR(36)        PRIMARY KEY,
			scene      VARCHAR(128)    NOT NULL,
			local_id   INT UNSIGNED    NOT NULL,
			occupants  TEXT            NOT NULL,
			sit_target CHAR(36)        NOT NULL,
			version    BIGINT UNSIGNED NOT NULL,
			updated_at TIMESTAMP       DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE       CURRENT_TIMESTAMP
		) ENGINE=InnoDB
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы seat_occupancy: %w", err)
	}
	return nil
}

// Save сохраняет срез через INSERT ... ON DUPLICATE KEY UPDATE.
// Колонки обновляются только при большей версии; version присваивается последней.
func (r *MariaOccupancyRepo) Save(ctx context.Context, occ Occupancy) (bool, error) {
	if occ.ObjectID == uuid.Nil {
		return false, fmt.Errorf("недействительный objectID: %s", occ.ObjectID)
	}

	occupants, err := json.Marshal(occ.Occupants)
	if err != nil {
		return false, fmt.Errorf("ошибка сериализации сидящих: %w", err)
	}

	query := `
		INSERT INTO seat_occupancy (object_id, scene, local_id, occupants, sit_target, version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			scene      = IF(VALUES(version) > version, VALUES(scene), scene),
			local_id   = IF(VALUES(version) > version, VALUES(local_id), local_id),
			occupants  = IF(VALUES(version) > version, VALUES(occupants), occupants),
			sit_target = IF(VALUES(version) > version, VALUES(sit_target), sit_target),
			version    = IF(VALUES(version) > version, VALUES(version), version)
	`

	res, err := r.db.ExecContext(ctx, query,
		occ.ObjectID.String(), occ.Scene, occ.LocalID, string(occupants), occ.SitTarget.String(), occ.Version)
	if err != nil {
		return false, fmt.Errorf("ошибка сохранения занятости объекта %s: %w", occ.ObjectID, err)
	}

	// 1: вставка, 2: обновление, 0: строка не изменилась
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка сохранения занятости объекта %s: %w", occ.ObjectID, err)
	}
	return rows > 0, nil
}

// Load загружает срез объекта из базы данных.
func (r *MariaOccupancyRepo) Load(ctx context.Context, objectID uuid.UUID) (Occupancy, bool, error) {
	query := `SELECT scene, local_id, occupants, sit_target, version FROM seat_occupancy WHERE object_id = ?`

	var (
		occ       = Occupancy{ObjectID: objectID}
		occupants string
		target    string
	)
	err := r.db.QueryRowContext(ctx, query, objectID.String()).
		Scan(&occ.Scene, &occ.LocalID, &occupants, &target, &occ.Version)

	if err == sql.ErrNoRows {
		return Occupancy{}, false, nil
	}
	if err != nil {
		return Occupancy{}, false, fmt.Errorf("ошибка загрузки занятости объекта %s: %w", objectID, err)
	}

	if err := json.Unmarshal([]byte(occupants), &occ.Occupants); err != nil {
		return Occupancy{}, false, fmt.Errorf("повреждённый список сидящих объекта %s: %w", objectID, err)
	}
	if occ.SitTarget, err = uuid.Parse(target); err != nil {
		return Occupancy{}, false, fmt.Errorf("повреждённый sit target объекта %s: %w", objectID, err)
	}
	if occ.Vacant() {
		return Occupancy{}, false, nil
	}

	return occ, true, nil
}

// Delete удаляет срез объекта.
func (r *MariaOccupancyRepo) Delete(ctx context.Context, objectID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM seat_occupancy WHERE object_id = ?`, objectID.String()); err != nil {
		return fmt.Errorf("ошибка удаления занятости объекта %s: %w", objectID, err)
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (r *MariaOccupancyRepo) Close() error {
	return r.db.Close()
}
