package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongroom/strongroom/internal/config"
	"github.com/strongroom/strongroom/pkg/cloud"
	"github.com/strongroom/strongroom/pkg/field"
	"github.com/strongroom/strongroom/pkg/security"
	"github.com/strongroom/strongroom/pkg/vault"
)

const masterPassword = "kxMq2rTz#vN9-master"

func newTestApp(t *testing.T, breachURL string) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	if breachURL != "" {
		cfg.Breach.ServiceURL = breachURL
	}
	a := New(cfg)
	t.Cleanup(a.Close)
	return a
}

func newRegisteredApp(t *testing.T, breachURL string) *App {
	t.Helper()
	a := newTestApp(t, breachURL)
	require.NoError(t, a.Register(masterPassword, masterPassword))
	return a
}

func TestRegisterFlow(t *testing.T) {
	a := newTestApp(t, "")

	assert.Equal(t, WindowRegister, a.InitializeWindow())

	assert.ErrorIs(t, a.Register(masterPassword, "different"), ErrPasswordMismatch)
	assert.ErrorIs(t, a.Register("", ""), vault.ErrEmptyPassword)
	assert.Equal(t, WindowRegister, a.InitializeWindow())

	require.NoError(t, a.Register(masterPassword, masterPassword))
	assert.Equal(t, WindowMain, a.InitializeWindow())

	a.Close()
	assert.Equal(t, WindowLogin, a.InitializeWindow())
}

func TestLoginFlow(t *testing.T) {
	a := newRegisteredApp(t, "")
	a.Close()

	assert.ErrorIs(t, a.Login("wrong-password"), vault.ErrInvalidPassword)
	assert.Equal(t, WindowLogin, a.InitializeWindow())

	require.NoError(t, a.Login(masterPassword))
	assert.Equal(t, WindowMain, a.InitializeWindow())
}

func TestStartOver(t *testing.T) {
	a := newRegisteredApp(t, "")

	record := vault.Record{Title: "Mail", Subtitle: "personal", Category: vault.CategoryLogin}
	_, err := a.SaveRecord(&record, nil)
	require.NoError(t, err)

	require.NoError(t, a.StartOver())
	assert.Equal(t, WindowRegister, a.InitializeWindow())

	// A fresh register starts from an empty vault.
	require.NoError(t, a.Register(masterPassword, masterPassword))
	records, err := a.GetAllRecords()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestChangePassword(t *testing.T) {
	a := newRegisteredApp(t, "")

	const newPassword = "Qm9$Lp2@Wz5!Kx7#"
	assert.ErrorIs(t, a.ChangePassword(masterPassword, newPassword, "other"), ErrPasswordMismatch)
	assert.ErrorIs(t, a.ChangePassword("wrong", newPassword, newPassword), vault.ErrInvalidPassword)
	assert.ErrorIs(t, a.ChangePassword(masterPassword, "weak", "weak"), vault.ErrWeakPassword)

	require.NoError(t, a.ChangePassword(masterPassword, newPassword, newPassword))
	a.Close()
	require.NoError(t, a.Login(newPassword))
}

func TestRecordWorkflow(t *testing.T) {
	a := newRegisteredApp(t, "")

	record := vault.Record{Title: "Mail", Subtitle: "personal", Category: vault.CategoryLogin}
	contents := []vault.Content{
		{Label: "Website", Required: true, Kind: field.URL, Value: "https://mail.example.com"},
		{Label: "Password", Required: true, Kind: field.Password, Value: "kxMq2rTz#vN9"},
		{Label: "OTP", Kind: field.TOTPSecret, Value: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"},
	}
	id, err := a.SaveRecord(&record, contents)
	require.NoError(t, err)
	assert.NotZero(t, id)

	records, err := a.GetAllRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Mail", records[0].Title)

	got, err := a.GetAllContentForRecord(records[0])
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Sensitive values are redacted in the listing and readable on demand.
	assert.Empty(t, got[1].Value)
	value, err := a.GetContentValue(got[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "kxMq2rTz#vN9", value)

	// The TOTP secret was loaded into the manager.
	code, seconds, err := a.GetTOTPCode(got[2].ID)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Greater(t, seconds, 0)
	assert.LessOrEqual(t, seconds, 30)

	require.NoError(t, a.DeleteContent(got[2].ID))
	_, _, err = a.GetTOTPCode(got[2].ID)
	assert.Error(t, err)

	require.NoError(t, a.DeleteRecord(id))
	records, err = a.GetAllRecords()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteRequiredContentKeepsTOTPSecret(t *testing.T) {
	a := newRegisteredApp(t, "")

	record := vault.Record{Title: "Mail", Category: vault.CategoryLogin}
	contents := []vault.Content{
		{Label: "OTP", Required: true, Kind: field.TOTPSecret, Value: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"},
	}
	_, err := a.SaveRecord(&record, contents)
	require.NoError(t, err)

	got, err := a.GetAllContentForRecord(record)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.ErrorIs(t, a.DeleteContent(got[0].ID), vault.ErrContentRequired)

	// The rejected delete must not drop the secret from the manager.
	code, _, err := a.GetTOTPCode(got[0].ID)
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

func TestGetAllContentForRecordTemplates(t *testing.T) {
	a := newRegisteredApp(t, "")

	unsaved := vault.Record{Category: vault.CategoryBankCard}
	contents, err := a.GetAllContentForRecord(unsaved)
	require.NoError(t, err)
	require.Len(t, contents, 4)
	assert.Equal(t, "Card number", contents[0].Label)
	assert.Equal(t, field.BankCardNumber, contents[0].Kind)
}

func TestCheckPassword(t *testing.T) {
	exposed := "kxMq2rTz#vN9"
	hash := security.HashPassword(exposed)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s:1204\r\n", hash[5:])
	}))
	defer srv.Close()

	a := newRegisteredApp(t, srv.URL)

	record := vault.Record{Title: "Mail", Subtitle: "personal", Category: vault.CategoryLogin}
	contents := []vault.Content{
		{Label: "Common", Kind: field.Password, Value: "hunter2"},
		{Label: "Exposed", Kind: field.Password, Value: exposed},
		{Label: "User", Kind: field.Text, Value: "alex"},
	}
	_, err := a.SaveRecord(&record, contents)
	require.NoError(t, err)

	ctx := context.Background()

	status, err := a.CheckPassword(ctx, contents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, security.BreachCommon, status)

	status, err = a.CheckPassword(ctx, contents[1].ID)
	require.NoError(t, err)
	assert.Equal(t, security.BreachExposed, status)

	_, err = a.CheckPassword(ctx, contents[2].ID)
	assert.ErrorIs(t, err, ErrNotPassword)
}

func TestCheckPasswordDegradesOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	a := newRegisteredApp(t, srv.URL)

	record := vault.Record{Title: "Mail", Subtitle: "personal", Category: vault.CategoryLogin}
	contents := []vault.Content{{Label: "Password", Kind: field.Password, Value: "kxMq2rTz#vN9"}}
	_, err := a.SaveRecord(&record, contents)
	require.NoError(t, err)

	status, err := a.CheckPassword(context.Background(), contents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, security.BreachOk, status)
}

func TestGetCompromisedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n")
	}))
	defer srv.Close()

	a := newRegisteredApp(t, srv.URL)
	ctx := context.Background()

	bad := vault.Record{Title: "Old forum", Subtitle: "legacy", Category: vault.CategoryLogin}
	_, err := a.SaveRecord(&bad, []vault.Content{{Label: "Password", Kind: field.Password, Value: "hunter2"}})
	require.NoError(t, err)

	good := vault.Record{Title: "Mail", Subtitle: "personal", Category: vault.CategoryLogin}
	_, err = a.SaveRecord(&good, []vault.Content{{Label: "Password", Kind: field.Password, Value: "kxMq2rTz#vN9"}})
	require.NoError(t, err)

	noPassword := vault.Record{Title: "Note", Subtitle: "n", Category: vault.CategoryNote}
	_, err = a.SaveRecord(&noPassword, []vault.Content{{Label: "Note", Kind: field.LongText, Value: "text"}})
	require.NoError(t, err)

	ids, err := a.GetCompromisedRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{bad.ID}, ids)
}

func TestCardType(t *testing.T) {
	a := newRegisteredApp(t, "")

	record := vault.Record{Title: "Debit", Subtitle: "bank", Category: vault.CategoryBankCard}
	contents := []vault.Content{
		{Label: "Card number", Kind: field.BankCardNumber, Value: "4702932172193242"},
		{Label: "PIN", Kind: field.Number, Value: "1234"},
	}
	_, err := a.SaveRecord(&record, contents)
	require.NoError(t, err)

	network, err := a.CardType(contents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Visa", network)

	_, err = a.CardType(contents[1].ID)
	assert.ErrorIs(t, err, ErrNotBankCard)
}

func TestValidateAndStrengthPassthrough(t *testing.T) {
	a := newTestApp(t, "")

	assert.Equal(t, "", a.Validate("Email", "a@b.com"))
	assert.Equal(t, "Invalid email", a.Validate("Email", "nope"))

	assert.Equal(t, 0, a.PasswordStrength(""))
	assert.Greater(t, a.PasswordStrength("x7#Qm9$Lp2@Wz5!K"), 70)

	generated, err := a.GeneratePassword(16, true, true, true, true)
	require.NoError(t, err)
	assert.Len(t, generated, 16)

	_, err = a.GeneratePassword(0, true, true, true, true)
	assert.ErrorIs(t, err, security.ErrInvalidParameters)
}

func TestCloudUnreachableDoesNotPersist(t *testing.T) {
	a := newRegisteredApp(t, "")

	err := a.EnableCloud("127.0.0.1:1", "alex", "sftp-pass")
	assert.Error(t, err)

	_, _, err = a.CloudData()
	assert.Error(t, err)

	// The vault stays fully usable offline.
	record := vault.Record{Title: "Mail", Subtitle: "personal", Category: vault.CategoryLogin}
	_, err = a.SaveRecord(&record, nil)
	require.NoError(t, err)

	status, err := a.SaveToCloud()
	require.NoError(t, err)
	assert.Contains(t, status, "Sync failed")
}

func TestDisableCloudWithoutConfig(t *testing.T) {
	a := newRegisteredApp(t, "")
	require.NoError(t, a.DisableCloud())
}

func TestRestoreFromCloudRequiresConfig(t *testing.T) {
	a := newRegisteredApp(t, "")

	assert.ErrorIs(t, a.RestoreFromCloud(), cloud.ErrNotEnabled)

	// A failed restore never touches the open session.
	assert.Equal(t, WindowMain, a.InitializeWindow())
	_, err := a.GetAllRecords()
	require.NoError(t, err)
}
