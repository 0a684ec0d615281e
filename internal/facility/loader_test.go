package facility

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/bh-network-dashboard/internal/domain"
	"github.com/couchcryptid/bh-network-dashboard/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullHeader = "NPI,Group Name,Street Address,City,State,Zip,Latitude,Longitude,is_substance_abuse_rehab,is_sud_rehab_clinic"

var loadTime = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLoader() *Loader {
	return NewLoader(discardLogger(), observability.NewMetricsForTesting(), clockwork.NewFakeClockAt(loadTime))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

// validRows generates n well-formed data rows.
func validRows(n int, state string) string {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "%d,Facility %d,%d Main St,Springfield,%s,%05d,%.4f,%.4f,True,False\n",
			1000000000+i, i, i+1, state, 10000+i, 30+float64(i)/100, -90-float64(i)/100)
	}
	return b.String()
}

func TestLoad_SkipsFileMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", fullHeader+"\n"+validRows(10, "TX"))
	writeFile(t, dir, "b.csv", "NPI,Group Name,Street Address,City,State,Latitude,Longitude,is_substance_abuse_rehab,is_sud_rehab_clinic\n"+
		"1,Clinic,1 Elm,Austin,TX,30.1,-97.7,True,True\n")
	writeFile(t, dir, "c.csv", fullHeader+"\n"+validRows(5, "OK"))

	result, err := newTestLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, result.Facilities, 15)
	assert.Equal(t, []string{"a.csv", "b.csv", "c.csv"}, result.Files)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "b.csv", result.Skipped[0].File)
	assert.Contains(t, result.Skipped[0].Reason, "Zip")

	for i, f := range result.Facilities {
		want := "a.csv"
		if i >= 10 {
			want = "c.csv"
		}
		assert.Equal(t, want, f.SourceFile, "row %d", i)
	}
}

func TestLoad_CleansRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "facilities.csv", "Extra,"+fullHeader+"\n"+
		"x, 1234567890.0 ,  Hope House  , 12 Oak Ave ,Tulsa , OK ,74103.0, 36.1540 ,-95.9928,1.0,0\n"+
		"x,1,,1 Elm,Austin,TX,78701,30.1,-97.7,True,True\n"+
		"x,2,No Lat,1 Elm,Austin,TX,78701,,-97.7,True,True\n"+
		"x,3,Too North,1 Elm,Austin,TX,78701,91,-97.7,True,True\n"+
		"x,4,Too West,1 Elm,Austin,TX,78701,30,-180.01,True,True\n"+
		"x,5,Edge,1 Elm,Austin,TX,02134,-90,180,maybe,\n")

	result, err := newTestLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)

	want := domain.Collection{
		{
			NPI:            "1234567890",
			Name:           "Hope House",
			StreetAddress:  "12 Oak Ave",
			City:           "Tulsa",
			State:          "OK",
			Zip:            "74103",
			Geo:            domain.Geo{Lat: 36.1540, Lon: -95.9928},
			SubstanceAbuse: domain.FlagTrue,
			SUDRehabClinic: domain.FlagFalse,
			SourceFile:     "facilities.csv",
		},
		{
			NPI:            "5",
			Name:           "Edge",
			StreetAddress:  "1 Elm",
			City:           "Austin",
			State:          "TX",
			Zip:            "02134",
			Geo:            domain.Geo{Lat: -90, Lon: 180},
			SubstanceAbuse: domain.FlagUnknown,
			SUDRehabClinic: domain.FlagUnknown,
			SourceFile:     "facilities.csv",
		},
	}
	if diff := cmp.Diff(want, result.Facilities); diff != "" {
		t.Errorf("facilities mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.CategorySubstanceAbuse, result.Facilities[0].Category())
}

func TestLoad_CoordinatesAlwaysInRange(t *testing.T) {
	dir := t.TempDir()
	values := []string{"-180.5", "-180", "-91", "-90", "-45.5", "0", "45.5", "90", "90.0001", "179.9", "180", "181", "NaN", "Inf"}

	var b strings.Builder
	b.WriteString(fullHeader + "\n")
	for i, lat := range values {
		for _, lon := range values {
			fmt.Fprintf(&b, "%d,F%d,1 St,Town,ST,12345,%s,%s,False,True\n", i, i, lat, lon)
		}
	}
	writeFile(t, dir, "grid.csv", b.String())

	result, err := newTestLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.NotEmpty(t, result.Facilities)

	for _, f := range result.Facilities {
		assert.True(t, f.Geo.Valid(), "out of range coordinate kept: %+v", f.Geo)
	}
	// 5 of the values are valid latitudes and 10 are valid longitudes.
	assert.Len(t, result.Facilities, 5*10)
}

func TestLoad_MalformedCoordinateSkipsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.csv", fullHeader+"\n"+validRows(3, "TX")+"9,Broken,1 St,Town,TX,12345,north,-97,True,True\n")
	writeFile(t, dir, "good.csv", fullHeader+"\n"+validRows(2, "TX"))

	result, err := newTestLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, result.Facilities, 2)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "bad.csv", result.Skipped[0].File)
	assert.ErrorIs(t, result.Skipped[0], domain.ErrMalformedCoordinate)
	assert.Equal(t, "line 5", result.Skipped[0].Reason)
}

func TestLoad_InvalidAndEmptyFilesSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.csv", "")
	writeFile(t, dir, "quotes.csv", fullHeader+"\n1,\"unterminated,1 St,Town,TX,1,30,-97,True,True\n")
	writeFile(t, dir, "notes.txt", "not a facility file")

	result, err := newTestLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, result.Empty())
	assert.Equal(t, []string{"empty.csv", "quotes.csv"}, result.Files)
	// The unterminated quote swallows the rest of the row, which is then too short to keep.
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "empty.csv", result.Skipped[0].File)
	assert.Equal(t, "file has no header row", result.Skipped[0].Reason)
}

func TestLoad_BareQuoteInName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "texas.csv", fullHeader+"\n"+
		"2000000001,Joe's \"Best\" Rehab,5 Elm St,Austin,TX,78701,30.27,-97.74,True,False\n"+
		validRows(1, "TX"))

	result, err := newTestLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Empty(t, result.Skipped)
	require.Len(t, result.Facilities, 2)
	assert.Equal(t, `Joe's "Best" Rehab`, result.Facilities[0].Name)
	assert.Equal(t, "5 Elm St", result.Facilities[0].StreetAddress)
}

func TestLoad_ShortRowsAreDropped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "short.csv", fullHeader+"\n1,Clinic,1 Elm,Austin,TX,78701,30.1\n"+validRows(1, "TX"))

	result, err := newTestLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)
	assert.Len(t, result.Facilities, 1)
}

func TestLoad_HeaderWithByteOrderMark(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bom.csv", "\ufeff"+fullHeader+"\n"+validRows(2, "TX"))

	result, err := newTestLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)
	assert.Len(t, result.Facilities, 2)
	assert.Equal(t, "1000000000", result.Facilities[0].NPI)
}

func TestLoad_NoCSVFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755))

	result, err := newTestLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.Empty(t, result.Files)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, loadTime, result.LoadedAt)
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := newTestLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, ErrDirectoryNotFound)
}

func TestLoad_PathIsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", fullHeader+"\n")

	_, err := newTestLoader().Load(context.Background(), filepath.Join(dir, "a.csv"))
	require.ErrorIs(t, err, ErrDirectoryNotFound)
}

func TestLoad_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", fullHeader+"\n"+validRows(1, "TX"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLoader().Load(ctx, dir)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFileIssue_Error(t *testing.T) {
	assert.Equal(t, "a.csv: missing required columns: Zip", FileIssue{File: "a.csv", Reason: "missing required columns: Zip"}.Error())
	issue := FileIssue{File: "b.csv", Reason: "line 3", Err: domain.ErrMalformedCoordinate}
	assert.Equal(t, "b.csv: line 3: malformed coordinate", issue.Error())
}
