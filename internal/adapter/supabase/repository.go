package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/plazafinder/mall-radar/internal/domain"
)

// Row shapes mirror the remote table columns. Coordinates are stored as
// discrete latitude/longitude columns and folded into domain.GeoPoint here.

type mallRow struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	Address    string   `json:"address,omitempty"`
	City       string   `json:"city,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Categories []string `json:"categories,omitempty"`
}

func (r mallRow) toDomain() domain.Mall {
	return domain.Mall{
		ID:         r.ID,
		Name:       r.Name,
		Address:    r.Address,
		City:       r.City,
		ImageURL:   r.ImageURL,
		Geo:        domain.GeoPoint{Lat: r.Latitude, Lon: r.Longitude},
		Categories: r.Categories,
	}
}

func mallToRow(m domain.Mall) mallRow {
	return mallRow{
		ID:         m.ID,
		Name:       m.Name,
		Address:    m.Address,
		City:       m.City,
		ImageURL:   m.ImageURL,
		Latitude:   m.Geo.Lat,
		Longitude:  m.Geo.Lon,
		Categories: m.Categories,
	}
}

type storeRow struct {
	ID          string   `json:"id,omitempty"`
	MallID      string   `json:"mall_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Floor       string   `json:"floor,omitempty"`
	LogoURL     string   `json:"logo_url,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

func (r storeRow) toDomain() domain.Store {
	return domain.Store{
		ID:          r.ID,
		MallID:      r.MallID,
		Name:        r.Name,
		Description: r.Description,
		Floor:       r.Floor,
		LogoURL:     r.LogoURL,
		Categories:  r.Categories,
	}
}

func storeToRow(s domain.Store) storeRow {
	return storeRow{
		ID:          s.ID,
		MallID:      s.MallID,
		Name:        s.Name,
		Description: s.Description,
		Floor:       s.Floor,
		LogoURL:     s.LogoURL,
		Categories:  s.Categories,
	}
}

type promotionRow struct {
	ID          string    `json:"id,omitempty"`
	StoreID     string    `json:"store_id"`
	MallID      string    `json:"mall_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`

	// Embedded mall resource, present on reads that join it.
	Mall *struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"malls,omitempty"`
}

func (r promotionRow) toDomain() domain.Promotion {
	p := domain.Promotion{
		ID:          r.ID,
		StoreID:     r.StoreID,
		MallID:      r.MallID,
		Title:       r.Title,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
	}
	if r.Mall != nil {
		p.MallName = r.Mall.Name
		p.Geo = domain.GeoPoint{Lat: r.Mall.Latitude, Lon: r.Mall.Longitude}
	}
	return p
}

type preferenceRow struct {
	UserID               string   `json:"user_id"`
	RadiusKm             float64  `json:"radius_km"`
	NotificationsEnabled bool     `json:"notifications_enabled"`
	LastLatitude         *float64 `json:"last_latitude,omitempty"`
	LastLongitude        *float64 `json:"last_longitude,omitempty"`
}

func (r preferenceRow) toDomain() domain.Preferences {
	p := domain.Preferences{
		RadiusKm:             r.RadiusKm,
		NotificationsEnabled: r.NotificationsEnabled,
	}
	if r.LastLatitude != nil && r.LastLongitude != nil {
		p.LastLocation = &domain.GeoPoint{Lat: *r.LastLatitude, Lon: *r.LastLongitude}
	}
	return p
}

// MallRepository reads and writes the malls table.
type MallRepository struct {
	client *Client
}

func NewMallRepository(client *Client) *MallRepository {
	return &MallRepository{client: client}
}

// ListMalls fetches every mall, ordered by name for stable input order.
func (r *MallRepository) ListMalls(ctx context.Context) ([]domain.Mall, error) {
	var rows []mallRow
	if err := r.client.From("malls").Select("*").Order("name", true).Get(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list malls: %w", err)
	}
	malls := make([]domain.Mall, len(rows))
	for i, row := range rows {
		malls[i] = row.toDomain()
	}
	return malls, nil
}

// GetMall fetches a single mall by ID.
func (r *MallRepository) GetMall(ctx context.Context, id string) (domain.Mall, error) {
	var row mallRow
	if err := r.client.From("malls").Select("*").Eq("id", id).Single().Get(ctx, &row); err != nil {
		return domain.Mall{}, fmt.Errorf("get mall %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// CreateMall inserts a mall and returns the stored representation.
func (r *MallRepository) CreateMall(ctx context.Context, m domain.Mall) (domain.Mall, error) {
	if err := m.Geo.Validate(); err != nil {
		return domain.Mall{}, err
	}
	var rows []mallRow
	if err := r.client.From("malls").Insert(ctx, []mallRow{mallToRow(m)}, &rows); err != nil {
		return domain.Mall{}, fmt.Errorf("create mall: %w", err)
	}
	if len(rows) == 0 {
		return domain.Mall{}, fmt.Errorf("create mall: empty representation")
	}
	return rows[0].toDomain(), nil
}

// UpdateMall patches a mall and returns the stored representation.
func (r *MallRepository) UpdateMall(ctx context.Context, id string, m domain.Mall) (domain.Mall, error) {
	if err := m.Geo.Validate(); err != nil {
		return domain.Mall{}, err
	}
	row := mallToRow(m)
	row.ID = "" // never patch the key
	var rows []mallRow
	if err := r.client.From("malls").Eq("id", id).Update(ctx, row, &rows); err != nil {
		return domain.Mall{}, fmt.Errorf("update mall %s: %w", id, err)
	}
	if len(rows) == 0 {
		return domain.Mall{}, fmt.Errorf("update mall %s: %w", id, &APIError{Status: 404, Message: "no such mall"})
	}
	return rows[0].toDomain(), nil
}

// DeleteMall removes a mall.
func (r *MallRepository) DeleteMall(ctx context.Context, id string) error {
	if err := r.client.From("malls").Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("delete mall %s: %w", id, err)
	}
	return nil
}

// StoreRepository reads the stores table.
type StoreRepository struct {
	client *Client
}

func NewStoreRepository(client *Client) *StoreRepository {
	return &StoreRepository{client: client}
}

// ListByMall fetches the stores inside a mall, ordered by name.
func (r *StoreRepository) ListByMall(ctx context.Context, mallID string) ([]domain.Store, error) {
	var rows []storeRow
	if err := r.client.From("stores").Select("*").Eq("mall_id", mallID).Order("name", true).Get(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list stores for mall %s: %w", mallID, err)
	}
	stores := make([]domain.Store, len(rows))
	for i, row := range rows {
		stores[i] = row.toDomain()
	}
	return stores, nil
}

// CreateStore inserts a store and returns it as stored.
func (r *StoreRepository) CreateStore(ctx context.Context, s domain.Store) (domain.Store, error) {
	var rows []storeRow
	if err := r.client.From("stores").Insert(ctx, []storeRow{storeToRow(s)}, &rows); err != nil {
		return domain.Store{}, fmt.Errorf("create store: %w", err)
	}
	if len(rows) == 0 {
		return domain.Store{}, fmt.Errorf("create store: empty response")
	}
	return rows[0].toDomain(), nil
}

// CountByMall returns the number of stores inside a mall without fetching rows.
func (r *StoreRepository) CountByMall(ctx context.Context, mallID string) (int, error) {
	n, err := r.client.From("stores").Select("id").Eq("mall_id", mallID).CountExact(ctx)
	if err != nil {
		return 0, fmt.Errorf("count stores for mall %s: %w", mallID, err)
	}
	return n, nil
}

// PromotionRepository reads and writes the promotions table.
type PromotionRepository struct {
	client *Client
	clock  clockwork.Clock
}

func NewPromotionRepository(client *Client) *PromotionRepository {
	return &PromotionRepository{client: client, clock: clockwork.NewRealClock()}
}

// SetClock swaps the repository time source; tests freeze it.
func (r *PromotionRepository) SetClock(c clockwork.Clock) { r.clock = c }

// ListActive fetches promotions whose end date is strictly in the future,
// joined with their mall's name and coordinate. The active cutoff is pushed
// down to the query; domain.ActivePromotions re-checks it in-process so the
// feed and the notifier share one definition of "active".
func (r *PromotionRepository) ListActive(ctx context.Context) ([]domain.Promotion, error) {
	now := r.clock.Now().UTC().Format(time.RFC3339)
	var rows []promotionRow
	err := r.client.From("promotions").
		Select("*,malls(name,latitude,longitude)").
		Gt("end_date", now).
		Order("end_date", true).
		Get(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}
	promos := make([]domain.Promotion, len(rows))
	for i, row := range rows {
		promos[i] = row.toDomain()
	}
	return promos, nil
}

// CreatePromotion inserts a promotion and returns the stored representation.
func (r *PromotionRepository) CreatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error) {
	row := promotionRow{
		StoreID:     p.StoreID,
		MallID:      p.MallID,
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
	}
	var rows []promotionRow
	if err := r.client.From("promotions").Insert(ctx, []promotionRow{row}, &rows); err != nil {
		return domain.Promotion{}, fmt.Errorf("create promotion: %w", err)
	}
	if len(rows) == 0 {
		return domain.Promotion{}, fmt.Errorf("create promotion: empty representation")
	}
	return rows[0].toDomain(), nil
}

// DeletePromotion removes a promotion.
func (r *PromotionRepository) DeletePromotion(ctx context.Context, id string) error {
	if err := r.client.From("promotions").Eq("id", id).Delete(ctx); err != nil {
		return fmt.Errorf("delete promotion %s: %w", id, err)
	}
	return nil
}

// PreferenceRepository reads and writes per-user preferences.
type PreferenceRepository struct {
	client *Client
}

func NewPreferenceRepository(client *Client) *PreferenceRepository {
	return &PreferenceRepository{client: client}
}

// Get fetches a user's preferences. A missing row yields defaults.
func (r *PreferenceRepository) Get(ctx context.Context, userID string) (domain.Preferences, error) {
	var row preferenceRow
	err := r.client.From("preferences").Select("*").Eq("user_id", userID).Single().Get(ctx, &row)
	if err != nil {
		if IsNotFound(err) {
			return domain.DefaultPreferences(), nil
		}
		return domain.Preferences{}, fmt.Errorf("get preferences for %s: %w", userID, err)
	}
	return row.toDomain(), nil
}

// Put upserts a user's preferences.
func (r *PreferenceRepository) Put(ctx context.Context, userID string, p domain.Preferences) error {
	row := preferenceRow{
		UserID:               userID,
		RadiusKm:             p.RadiusKm,
		NotificationsEnabled: p.NotificationsEnabled,
	}
	if p.LastLocation != nil {
		row.LastLatitude = &p.LastLocation.Lat
		row.LastLongitude = &p.LastLocation.Lon
	}
	if err := r.client.From("preferences").Upsert(ctx, []preferenceRow{row}, "user_id", nil); err != nil {
		return fmt.Errorf("put preferences for %s: %w", userID, err)
	}
	return nil
}

// ListSubscribers fetches every user with notifications enabled and a known
// last location. Rows without a usable location are skipped.
func (r *PreferenceRepository) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	var rows []preferenceRow
	err := r.client.From("preferences").Select("*").Eq("notifications_enabled", true).Get(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	subs := make([]domain.Subscriber, 0, len(rows))
	for _, row := range rows {
		if row.LastLatitude == nil || row.LastLongitude == nil {
			continue
		}
		subs = append(subs, domain.Subscriber{
			UserID:   row.UserID,
			Location: domain.GeoPoint{Lat: *row.LastLatitude, Lon: *row.LastLongitude},
			RadiusKm: row.RadiusKm,
		})
	}
	return subs, nil
}

// ProfileRepository reads the profiles table, which carries the app role.
type ProfileRepository struct {
	client *Client
}

func NewProfileRepository(client *Client) *ProfileRepository {
	return &ProfileRepository{client: client}
}

// GetRole returns the role stored for a user, "user" when no profile exists.
func (r *ProfileRepository) GetRole(ctx context.Context, userID string) (string, error) {
	var row struct {
		Role string `json:"role"`
	}
	err := r.client.From("profiles").Select("role").Eq("id", userID).Single().Get(ctx, &row)
	if err != nil {
		if IsNotFound(err) {
			return "user", nil
		}
		return "", fmt.Errorf("get role for %s: %w", userID, err)
	}
	return row.Role, nil
}
