package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/gamification"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/export"
)

func reportRequest(severity, dead int) dto.CreateAccidentRequest {
	return dto.CreateAccidentRequest{
		Latitude:       floatPtr(-6.2),
		Longitude:      floatPtr(106.8),
		Description:    "  Truck overturned, lane<closed past the toll road  ",
		Severity:       severity,
		CasualtiesDead: dead,
	}
}

func TestCreateAccidentFirstReportAwards(t *testing.T) {
	env := newTestEnv()
	reporter := env.store.addUser(models.User{Username: "rider"})

	res, err := env.accidents.Create(context.Background(), reporter.ID, reportRequest(5, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, models.AccidentNotConfirmed, res.Accident.Status)
	assert.Equal(t, "Truck overturned, lane<closed past the toll road", res.Accident.Description)
	require.Len(t, res.Awards, 2)
	assert.Equal(t, gamification.ReasonFirstReport, res.Awards[0].Reason)
	assert.Equal(t, gamification.ReasonHighSeverity, res.Awards[1].Reason)

	stored := env.store.user(reporter.ID)
	assert.Equal(t, 110, stored.Points)
	assert.Equal(t, []string{"First Responder", "Safe Driver"}, []string(stored.Badges))
	assert.Len(t, env.store.logs, 2)
}

func TestCreateAccidentLaterReportEarnsNothingExtra(t *testing.T) {
	env := newTestEnv()
	reporter := env.store.addUser(models.User{Username: "rider"})
	env.addAccident(reporter, models.AccidentNotConfirmed)

	res, err := env.accidents.Create(context.Background(), reporter.ID, reportRequest(3, 0), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Awards)
	assert.Equal(t, 0, env.store.user(reporter.ID).Points)
}

func TestCreateAccidentValidation(t *testing.T) {
	env := newTestEnv()
	reporter := env.store.addUser(models.User{Username: "rider"})
	ctx := context.Background()

	_, err := env.accidents.Create(ctx, reporter.ID, reportRequest(3, 1), nil)
	assertAppError(t, err, appErrors.ErrValidation, "Fatalities reported. Severity must be 4 or 5.")

	short := reportRequest(3, 0)
	short.Description = "   crash\x00   "
	_, err = env.accidents.Create(ctx, reporter.ID, short, nil)
	assertAppError(t, err, appErrors.ErrValidation, "")

	outOfRange := reportRequest(6, 0)
	_, err = env.accidents.Create(ctx, reporter.ID, outOfRange, nil)
	assertAppError(t, err, appErrors.ErrValidation, "")

	badLat := reportRequest(3, 0)
	badLat.Latitude = floatPtr(91)
	_, err = env.accidents.Create(ctx, reporter.ID, badLat, nil)
	assertAppError(t, err, appErrors.ErrValidation, "")

	assert.Empty(t, env.store.accidents)
}

func TestCreateAccidentCooldown(t *testing.T) {
	env := newTestEnv()
	reporter := env.store.addUser(models.User{Username: "rider"})
	recent := env.addAccident(reporter, models.AccidentNotConfirmed)
	recent.CreatedAt = fixedNow.Add(-time.Minute)
	env.store.accidents[recent.ID] = recent

	_, err := env.accidents.Create(context.Background(), reporter.ID, reportRequest(3, 0), nil)
	assertAppError(t, err, appErrors.ErrRateLimited, "Please wait 2 minutes before reporting again.")

	recent.CreatedAt = fixedNow.Add(-2 * time.Minute)
	env.store.accidents[recent.ID] = recent
	_, err = env.accidents.Create(context.Background(), reporter.ID, reportRequest(3, 0), nil)
	require.NoError(t, err)
}

func TestCreateAccidentPhoto(t *testing.T) {
	env := newTestEnv()
	reporter := env.store.addUser(models.User{Username: "rider"})
	ctx := context.Background()

	_, err := env.accidents.Create(ctx, reporter.ID, reportRequest(3, 0), &dto.PhotoUpload{Filename: "script.exe", Size: 10, Content: strings.NewReader("x")})
	assertAppError(t, err, appErrors.ErrValidation, "")

	_, err = env.accidents.Create(ctx, reporter.ID, reportRequest(3, 0), &dto.PhotoUpload{Filename: "big.png", Size: 4096, Content: strings.NewReader("x")})
	assertAppError(t, err, appErrors.ErrValidation, "")
	assert.Empty(t, env.photos.saved)

	res, err := env.accidents.Create(ctx, reporter.ID, reportRequest(3, 0), &dto.PhotoUpload{Filename: "crash.JPG", Size: 3, Content: strings.NewReader("img")})
	require.NoError(t, err)
	require.NotNil(t, res.Accident.PhotoURL)
	assert.True(t, strings.HasSuffix(*res.Accident.PhotoURL, ".jpg"))
	assert.Contains(t, env.photos.saved, *res.Accident.PhotoURL)
}

func TestCreateAccidentRemovesPhotoOnFailure(t *testing.T) {
	env := newTestEnv()
	reporter := env.store.addUser(models.User{Username: "rider"})
	env.store.fail["accidents.Create"] = errBoom

	_, err := env.accidents.Create(context.Background(), reporter.ID, reportRequest(5, 0), &dto.PhotoUpload{Filename: "crash.png", Size: 3, Content: strings.NewReader("img")})
	assertAppError(t, err, appErrors.ErrInternal, "")
	assert.Empty(t, env.photos.saved)
	assert.Len(t, env.photos.deleted, 1)
	assert.Equal(t, 0, env.store.user(reporter.ID).Points)
	assert.Empty(t, env.store.logs)
}

func TestCreateAccidentRollsBackWhenAwardFails(t *testing.T) {
	env := newTestEnv()
	reporter := env.store.addUser(models.User{Username: "rider"})
	env.store.fail["ledger.Create"] = errBoom

	_, err := env.accidents.Create(context.Background(), reporter.ID, reportRequest(3, 0), nil)
	require.Error(t, err)
	assert.Empty(t, env.store.accidents)
	assert.Equal(t, 0, env.store.user(reporter.ID).Points)
}

func TestVerifyAccident(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	reporter := env.store.addUser(models.User{Username: "rider", Points: 10, Badges: []string{"First Responder"}})
	officer := env.store.addUser(models.User{Username: "cop", Role: models.RoleOfficer})
	accident := env.addAccident(reporter, models.AccidentNotConfirmed)
	actor := policy.Actor{ID: officer.ID, Role: models.RoleOfficer}

	_, err := env.accidents.Verify(ctx, actor, accident.ID, "not_confirmed")
	assertAppError(t, err, appErrors.ErrValidation, "")

	_, err = env.accidents.Verify(ctx, actor, "missing", "confirmed")
	assertAppError(t, err, appErrors.ErrNotFound, "")

	_, err = env.accidents.Verify(ctx, policy.Actor{ID: reporter.ID, Role: models.RoleUser}, accident.ID, "confirmed")
	assertAppError(t, err, appErrors.ErrForbidden, "")

	detail, err := env.accidents.Verify(ctx, actor, accident.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, models.AccidentConfirmed, detail.Status)
	require.NotNil(t, detail.VerifierUsername)
	assert.Equal(t, "cop", *detail.VerifierUsername)
	assert.Equal(t, 60, env.store.user(reporter.ID).Points)

	_, err = env.accidents.Verify(ctx, actor, accident.ID, "false_report")
	assertAppError(t, err, appErrors.ErrValidation, "")
	assert.Equal(t, 60, env.store.user(reporter.ID).Points)
}

func TestVerifyFalseReportFloorsPoints(t *testing.T) {
	env := newTestEnv()
	reporter := env.store.addUser(models.User{Username: "rider", Points: 5})
	accident := env.addAccident(reporter, models.AccidentNotConfirmed)

	_, err := env.accidents.Verify(context.Background(), policy.Actor{ID: "admin", Role: models.RoleAdmin}, accident.ID, "false_report")
	require.NoError(t, err)
	assert.Equal(t, 0, env.store.user(reporter.ID).Points)
	assert.Equal(t, -20, env.store.logs[0].Amount)
}

func TestVerifyWithMissingReporterSkipsAward(t *testing.T) {
	env := newTestEnv()
	ghost := &models.User{ID: "ghost"}
	accident := env.addAccident(ghost, models.AccidentNotConfirmed)

	_, err := env.accidents.Verify(context.Background(), policy.Actor{ID: "admin", Role: models.RoleAdmin}, accident.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, models.AccidentConfirmed, env.store.accidents[accident.ID].Status)
	assert.Empty(t, env.store.logs)
}

func TestDeleteAccident(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := env.store.addUser(models.User{Username: "rider"})
	stranger := env.store.addUser(models.User{Username: "other"})
	accident := env.addAccident(owner, models.AccidentNotConfirmed)
	photo := "photo.png"
	accident.PhotoURL = &photo
	env.store.accidents[accident.ID] = accident
	env.store.comments[1] = models.Comment{ID: 1, AccidentID: accident.ID, Content: "seen it"}
	env.store.routes["route-x"] = models.Route{ID: "route-x", AccidentID: accident.ID, RouteName: "Main St"}

	err := env.accidents.Delete(ctx, policy.Actor{ID: stranger.ID, Role: models.RoleUser}, accident.ID)
	assertAppError(t, err, appErrors.ErrForbidden, "")

	err = env.accidents.Delete(ctx, policy.Actor{ID: owner.ID, Role: models.RoleUser}, "missing")
	assertAppError(t, err, appErrors.ErrNotFound, "")

	require.NoError(t, env.accidents.Delete(ctx, policy.Actor{ID: owner.ID, Role: models.RoleUser}, accident.ID))
	assert.Empty(t, env.store.accidents)
	assert.Empty(t, env.store.comments)
	assert.Empty(t, env.store.routes)
	assert.Equal(t, []string{photo}, env.photos.deleted)
}

func TestDeleteAccidentRollsBackCascade(t *testing.T) {
	env := newTestEnv()
	owner := env.store.addUser(models.User{Username: "rider"})
	accident := env.addAccident(owner, models.AccidentNotConfirmed)
	env.store.comments[1] = models.Comment{ID: 1, AccidentID: accident.ID, Content: "seen it"}
	env.store.fail["accidents.Delete"] = errBoom

	err := env.accidents.Delete(context.Background(), policy.Actor{ID: "admin", Role: models.RoleAdmin}, accident.ID)
	require.Error(t, err)
	assert.Len(t, env.store.comments, 1)
	assert.Len(t, env.store.accidents, 1)
	assert.Empty(t, env.photos.deleted)
}

func TestGetAccidentIncludesComments(t *testing.T) {
	env := newTestEnv()
	owner := env.store.addUser(models.User{Username: "rider"})
	accident := env.addAccident(owner, models.AccidentNotConfirmed)
	env.store.comments[7] = models.Comment{ID: 7, AccidentID: accident.ID, UserID: &owner.ID, Content: "still blocked"}

	detail, comments, err := env.accidents.Get(context.Background(), accident.ID)
	require.NoError(t, err)
	assert.Equal(t, "rider", *detail.ReporterUsername)
	require.Len(t, comments, 1)
	assert.Equal(t, "rider", *comments[0].AuthorUsername)

	_, _, err = env.accidents.Get(context.Background(), "missing")
	assertAppError(t, err, appErrors.ErrNotFound, "")
}

func TestListAccidentsRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv()
	status := models.AccidentStatus("bogus")

	_, _, err := env.accidents.List(context.Background(), models.AccidentFilter{Status: &status})
	assertAppError(t, err, appErrors.ErrValidation, "")
}

func TestExportAccidents(t *testing.T) {
	env := newTestEnv()
	owner := env.store.addUser(models.User{Username: "rider"})
	accident := env.addAccident(owner, models.AccidentConfirmed)
	accident.IsAnonymous = true
	env.store.accidents[accident.ID] = accident

	_, err := env.accidents.Export(context.Background(), policy.Actor{ID: owner.ID, Role: models.RoleUser}, export.FormatCSV, models.AccidentFilter{})
	assertAppError(t, err, appErrors.ErrForbidden, "")

	body, err := env.accidents.Export(context.Background(), policy.Actor{ID: "admin", Role: models.RoleAdmin}, export.FormatCSV, models.AccidentFilter{})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Created,Status"))
	assert.Contains(t, lines[1], "Anonymous")
	assert.NotContains(t, lines[1], "rider")
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "2 minutes", humanDuration(2*time.Minute))
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "90 seconds", humanDuration(90*time.Second))
}
