package db

import (
	"path/filepath"
	"testing"

	"loraset/config"
	"loraset/model"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{"", "mysql", false},
		{"mysql", "mysql", false},
		{"sqlite", "sqlite", false},
		{"postgres", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := Dialector(&config.Config{DBDriver: tt.driver, DBPath: "x.db"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("unsupported driver accepted")
				}
				return
			}
			if err != nil {
				t.Fatalf("Dialector() error = %v", err)
			}
			if d.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", d.Name(), tt.want)
			}
		})
	}
}

func TestConnectSQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "catalog.db")}
	if err := ConnectGormDB(cfg); err != nil {
		t.Fatalf("ConnectGormDB() error = %v", err)
	}
	t.Cleanup(func() {
		CloseGormDB()
		GormDB = nil
	})
	if err := AutoMigrateModels(GormDB, &model.CatalogEntry{}); err != nil {
		t.Fatalf("AutoMigrateModels() error = %v", err)
	}
	if !GormDB.Migrator().HasTable(&model.CatalogEntry{}) {
		t.Error("catalog table missing after migration")
	}
}

func TestAutoMigrateWithoutConnection(t *testing.T) {
	if err := AutoMigrateModels(nil); err == nil {
		t.Error("migration without a connection succeeded")
	}
}
