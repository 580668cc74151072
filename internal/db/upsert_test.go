package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsertSQL(t *testing.T) {
	sql := UpsertSQL("vehicles", []string{"external_id", "year", "seats"}, []string{"external_id"})
	assert.Equal(t,
		`INSERT INTO "vehicles" ("external_id", "year", "seats") VALUES ($1, $2, $3) `+
			`ON CONFLICT ("external_id") DO UPDATE SET "year" = EXCLUDED."year", "seats" = EXCLUDED."seats"`,
		sql)
}

func TestUpsertSQL_CompositeKey(t *testing.T) {
	sql := UpsertSQL("models", []string{"make_id", "name", "name_ru"}, []string{"make_id", "name"})
	assert.Contains(t, sql, `ON CONFLICT ("make_id", "name")`)
	assert.Contains(t, sql, `"name_ru" = EXCLUDED."name_ru"`)
	assert.NotContains(t, sql, `"make_id" = EXCLUDED`)
}

func TestInsertIgnoreSQL(t *testing.T) {
	sql := InsertIgnoreSQL("fuels", []string{"name", "name_ru"}, []string{"name"})
	assert.Equal(t,
		`INSERT INTO "fuels" ("name", "name_ru") VALUES ($1, $2) ON CONFLICT ("name") DO NOTHING`,
		sql)
}

func TestSanitizeTable_SchemaQualified(t *testing.T) {
	assert.Equal(t, `"catalog"."vehicles"`, sanitizeTable("catalog.vehicles"))
	assert.Equal(t, `"vehicles"`, sanitizeTable("vehicles"))
}
