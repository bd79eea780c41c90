package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/plazafinder/mall-radar/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMallRepository_ListMalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/malls", r.URL.Path)
		assert.Equal(t, "name.asc", r.URL.Query().Get("order"))

		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode([]mallRow{
			{ID: "m-1", Name: "Centro Plaza", Address: "Centro", Latitude: 19.4326, Longitude: -99.1332, Categories: []string{"fashion"}},
			{ID: "m-2", Name: "Plaza Norte", Latitude: 19.4892, Longitude: -99.1277},
		}))
	}))
	defer srv.Close()

	malls, err := NewMallRepository(testClient(srv.URL)).ListMalls(context.Background())
	require.NoError(t, err)
	require.Len(t, malls, 2)

	assert.Equal(t, "m-1", malls[0].ID)
	assert.Equal(t, domain.GeoPoint{Lat: 19.4326, Lon: -99.1332}, malls[0].Geo)
	assert.Equal(t, []string{"fashion"}, malls[0].Categories)
}

func TestMallRepository_CreateMall_RejectsInvalidCoordinates(t *testing.T) {
	repo := NewMallRepository(testClient("http://unreachable.invalid"))

	_, err := repo.CreateMall(context.Background(), domain.Mall{Name: "Bad", Geo: domain.GeoPoint{Lat: 400}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

func TestStoreRepository_ListByMall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.m-1", r.URL.Query().Get("mall_id"))
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode([]storeRow{
			{ID: "s-1", MallID: "m-1", Name: "Cinema", Categories: []string{"entertainment"}},
		}))
	}))
	defer srv.Close()

	stores, err := NewStoreRepository(testClient(srv.URL)).ListByMall(context.Background(), "m-1")
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "Cinema", stores[0].Name)
}

func TestStoreRepository_CountByMall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		assert.Equal(t, "eq.m-1", r.URL.Query().Get("mall_id"))
		w.Header().Set("Content-Range", "0-0/17")
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	n, err := NewStoreRepository(testClient(srv.URL)).CountByMall(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, 17, n)
}

func TestPromotionRepository_ListActive_PushesCutoffDown(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/promotions", r.URL.Path)
		assert.Equal(t, "gt."+now.Format(time.RFC3339), r.URL.Query().Get("end_date"))
		assert.Equal(t, "*,malls(name,latitude,longitude)", r.URL.Query().Get("select"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[
			{"id":"p-1","store_id":"s-1","mall_id":"m-1","title":"2x1","end_date":"2026-03-20T00:00:00Z",
			 "malls":{"name":"Centro Plaza","latitude":19.4326,"longitude":-99.1332}}
		]`))
	}))
	defer srv.Close()

	repo := NewPromotionRepository(testClient(srv.URL))
	repo.SetClock(clockwork.NewFakeClockAt(now))

	promos, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, promos, 1)

	assert.Equal(t, "p-1", promos[0].ID)
	assert.Equal(t, "Centro Plaza", promos[0].MallName)
	assert.Equal(t, domain.GeoPoint{Lat: 19.4326, Lon: -99.1332}, promos[0].Geo)
}

func TestPreferenceRepository_Get_MissingRowYieldsDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"message":"JSON object requested, multiple (or no) rows returned"}`))
	}))
	defer srv.Close()

	prefs, err := NewPreferenceRepository(testClient(srv.URL)).Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPreferences(), prefs)
}

func TestPreferenceRepository_Put_Upserts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "user_id", r.URL.Query().Get("on_conflict"))

		var rows []preferenceRow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "u-1", rows[0].UserID)
		assert.Equal(t, 12.0, rows[0].RadiusKm)
		require.NotNil(t, rows[0].LastLatitude)
		assert.Equal(t, 19.4326, *rows[0].LastLatitude)

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	err := NewPreferenceRepository(testClient(srv.URL)).Put(context.Background(), "u-1", domain.Preferences{
		RadiusKm:             12,
		NotificationsEnabled: true,
		LastLocation:         &domain.GeoPoint{Lat: 19.4326, Lon: -99.1332},
	})
	require.NoError(t, err)
}

func TestPreferenceRepository_ListSubscribers_SkipsUnknownLocation(t *testing.T) {
	lat, lon := 19.4326, -99.1332
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.true", r.URL.Query().Get("notifications_enabled"))
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode([]preferenceRow{
			{UserID: "u-1", RadiusKm: 4, NotificationsEnabled: true, LastLatitude: &lat, LastLongitude: &lon},
			{UserID: "u-2", RadiusKm: 4, NotificationsEnabled: true}, // no location yet
		}))
	}))
	defer srv.Close()

	subs, err := NewPreferenceRepository(testClient(srv.URL)).ListSubscribers(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "u-1", subs[0].UserID)
	assert.Equal(t, domain.GeoPoint{Lat: lat, Lon: lon}, subs[0].Location)
}

func TestProfileRepository_GetRole_DefaultsToUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	role, err := NewProfileRepository(testClient(srv.URL)).GetRole(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "user", role)
}

func TestProfileRepository_GetRole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "role", r.URL.Query().Get("select"))
		assert.Equal(t, "eq.u-1", r.URL.Query().Get("id"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"role":"admin"}`))
	}))
	defer srv.Close()

	role, err := NewProfileRepository(testClient(srv.URL)).GetRole(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "admin", role)
}
