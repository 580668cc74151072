package ingest

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivebase/catalog-cli/internal/catalog"
	"github.com/drivebase/catalog-cli/internal/model"
	"github.com/drivebase/catalog-cli/internal/resolve"
)

// fakePageTx hands out sequential reference ids and records upserts.
type fakePageTx struct {
	nextID   int64
	makes    map[string]model.Ref
	models   map[string]model.Ref
	upserts  []model.Vehicle
	commits  int
	rollback int
	failWith error
}

func newFakePageTx() *fakePageTx {
	return &fakePageTx{
		nextID: 1,
		makes:  make(map[string]model.Ref),
		models: make(map[string]model.Ref),
	}
}

func (f *fakePageTx) GetOrCreateMake(ctx context.Context, name string) (model.Ref, bool, error) {
	if f.failWith != nil {
		return model.Ref{}, false, f.failWith
	}
	if ref, ok := f.makes[name]; ok {
		return ref, false, nil
	}
	ref := model.Ref{ID: f.nextID, Name: name}
	f.nextID++
	f.makes[name] = ref
	return ref, true, nil
}

func (f *fakePageTx) GetOrCreateModel(ctx context.Context, makeID int64, name string) (model.Ref, bool, error) {
	if f.failWith != nil {
		return model.Ref{}, false, f.failWith
	}
	if ref, ok := f.models[name]; ok {
		return ref, false, nil
	}
	ref := model.Ref{ID: f.nextID, Name: name}
	f.nextID++
	f.models[name] = ref
	return ref, true, nil
}

func (f *fakePageTx) UpsertVehicle(ctx context.Context, v model.Vehicle) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.upserts = append(f.upserts, v)
	return nil
}

func (f *fakePageTx) Commit(ctx context.Context) error {
	f.commits++
	return nil
}

func (f *fakePageTx) Rollback(ctx context.Context) error {
	f.rollback++
	return nil
}

func testNormalizer() *Normalizer {
	fuels := map[string]model.Ref{
		string(model.FuelGasoline):         {ID: 10, Name: "gasoline"},
		string(model.FuelDiesel):           {ID: 11, Name: "diesel"},
		string(model.FuelElectric):         {ID: 12, Name: "electric"},
		string(model.FuelGasolineElectric): {ID: 13, Name: "gasoline+electric"},
		string(model.FuelOther):            {ID: 14, Name: "other"},
	}
	transmissions := map[string]model.Ref{
		string(model.TransmissionAutomatic):  {ID: 20, Name: "automatic"},
		string(model.TransmissionMechanical): {ID: 21, Name: "mechanical"},
		string(model.TransmissionOther):      {ID: 22, Name: "other"},
	}
	return NewNormalizer(resolve.New(fuels, transmissions))
}

func camryRecord() catalog.RawRecord {
	return catalog.RawRecord{
		"id":        "12345",
		"make":      "Toyota",
		"model":     "Camry LE",
		"basemodel": "Camry",
		"year":      "2020",
		"displ":     "2.5",
		"fueltype1": "Regular Gasoline",
		"trany":     "Automatic (S8)",
		"drive":     "Front-Wheel Drive",
		"vclass":    "Midsize Cars",
	}
}

func TestNormalize_Success(t *testing.T) {
	n := testNormalizer()
	tx := newFakePageTx()

	res, err := n.Normalize(context.Background(), tx, camryRecord())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)

	v := res.Vehicle
	assert.Equal(t, "opendatasoft_12345", v.ExternalID)
	assert.Equal(t, "Toyota", v.Make.Name)
	assert.Equal(t, "Camry", v.Model.Name)
	assert.Equal(t, 2020, v.Year)
	require.NotNil(t, v.EngineVolume)
	assert.InDelta(t, 2.5, *v.EngineVolume, 1e-9)
	assert.Equal(t, model.BodySedan, v.BodyStyle)
	assert.Equal(t, model.DriveFront, v.Drivetrain)
	assert.Equal(t, int64(10), v.Fuel.ID)
	assert.Equal(t, int64(20), v.Transmission.ID)
	assert.Equal(t, 4, v.Seats)
}

func TestNormalize_MissingRequiredField(t *testing.T) {
	n := testNormalizer()

	for _, key := range []string{"make", "model", "year"} {
		rec := camryRecord()
		delete(rec, key)
		res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkip, res.Outcome, key)
		assert.Equal(t, ReasonMissingField, res.Reason, key)
	}
}

func TestNormalize_EmptyFieldIsMissing(t *testing.T) {
	n := testNormalizer()

	rec := camryRecord()
	rec["make"] = "   "
	res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkip, res.Outcome)
	assert.Equal(t, ReasonMissingField, res.Reason)
}

func TestNormalize_InvalidYear(t *testing.T) {
	n := testNormalizer()

	for _, year := range []string{"donkey", "1899", "2031"} {
		rec := camryRecord()
		rec["year"] = year
		res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkip, res.Outcome, year)
		assert.Equal(t, ReasonInvalidYear, res.Reason, year)
	}
}

func TestNormalize_YearBounds(t *testing.T) {
	n := testNormalizer()

	for _, year := range []string{"1900", "2030"} {
		rec := camryRecord()
		rec["year"] = year
		res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, res.Outcome, year)
	}
}

func TestNormalize_NumericYearField(t *testing.T) {
	// The upstream API serves year as a JSON number.
	n := testNormalizer()

	rec := camryRecord()
	rec["year"] = float64(2020)
	res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 2020, res.Vehicle.Year)
}

func TestNormalize_DisplacementVariants(t *testing.T) {
	n := testNormalizer()

	cases := []struct {
		displ any
		want  *float64
	}{
		{"2.5", ptr(2.5)},
		{float64(3), ptr(3.0)},
		{"None", nil},
		{"", nil},
		{"-1.0", nil},
		{"0", nil},
		{"n/a", nil},
	}
	for _, tc := range cases {
		rec := camryRecord()
		rec["displ"] = tc.displ
		res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
		require.NoError(t, err)
		require.Equal(t, OutcomeSuccess, res.Outcome)
		if tc.want == nil {
			assert.Nil(t, res.Vehicle.EngineVolume, tc.displ)
		} else {
			require.NotNil(t, res.Vehicle.EngineVolume, tc.displ)
			assert.InDelta(t, *tc.want, *res.Vehicle.EngineVolume, 1e-9, tc.displ)
		}
	}
}

func TestNormalize_FuelFallback(t *testing.T) {
	n := testNormalizer()

	rec := camryRecord()
	delete(rec, "fueltype1")
	res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "gasoline", res.Vehicle.Fuel.Name)
}

func TestNormalize_TransmissionFallback(t *testing.T) {
	n := testNormalizer()

	rec := camryRecord()
	delete(rec, "trany")
	res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "automatic", res.Vehicle.Transmission.Name)
}

func TestNormalize_NoFallbackFuel(t *testing.T) {
	n := NewNormalizer(resolve.New(map[string]model.Ref{}, map[string]model.Ref{}))

	rec := camryRecord()
	delete(rec, "fueltype1")
	res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkip, res.Outcome)
	assert.Equal(t, ReasonNoFallbackFuel, res.Reason)
}

func TestNormalize_ExternalIDFallbackSlug(t *testing.T) {
	n := testNormalizer()

	rec := camryRecord()
	delete(rec, "id")
	res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "opendatasoft_toyota-camry-le-2020", res.Vehicle.ExternalID)
}

func TestNormalize_StoreErrorAbortsPage(t *testing.T) {
	n := testNormalizer()
	tx := newFakePageTx()
	tx.failWith = eris.New("connection lost")

	_, err := n.Normalize(context.Background(), tx, camryRecord())
	assert.Error(t, err)
}

func TestNormalize_MissingBodyStyleStaysEmpty(t *testing.T) {
	n := testNormalizer()

	rec := camryRecord()
	delete(rec, "vclass")
	delete(rec, "drive")
	res, err := n.Normalize(context.Background(), newFakePageTx(), rec)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Empty(t, res.Vehicle.BodyStyle)
	assert.Empty(t, res.Vehicle.Drivetrain)
	assert.Equal(t, 4, res.Vehicle.Seats)
}

func ptr(f float64) *float64 { return &f }
