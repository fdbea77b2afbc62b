package casdoor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

// ErrIdentityRejected is returned when Casdoor accepts a request but reports no change
var ErrIdentityRejected = errors.New("identity provider rejected the change")

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// IdentityClient is the part of the Casdoor SDK client used by the user store
type IdentityClient interface {
	GetUserByUserId(userId string) (*casdoorsdk.User, error)
	GetUserByEmail(email string) (*casdoorsdk.User, error)
	GetPaginationUsers(p int, pageSize int, queryMap map[string]string) ([]*casdoorsdk.User, int, error)
	AddUser(user *casdoorsdk.User) (bool, error)
	DeleteUser(user *casdoorsdk.User) (bool, error)
	SetPassword(owner, name, oldPassword, newPassword string) (bool, error)
	UpdateUserForColumns(user *casdoorsdk.User, columns []string) (bool, error)
}

// UserCasdoor reads profiles from Casdoor and roles from the role repository
type UserCasdoor struct {
	client       IdentityClient
	roles        repositories.RoleRepository
	cacheManager *cache.CacheManager
	config       CasdoorConfig
}

func NewUserCasdoor(config CasdoorConfig, redisClient *redis.Client, roles repositories.RoleRepository) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)
	return NewUserCasdoorWithClient(config, client, redisClient, roles)
}

// NewUserCasdoorWithClient builds the store on an existing identity client
func NewUserCasdoorWithClient(config CasdoorConfig, client IdentityClient, redisClient *redis.Client, roles repositories.RoleRepository) repositories.UserRepository {
	return &UserCasdoor{
		client:       client,
		roles:        roles,
		cacheManager: cache.NewCacheManager(redisClient),
		config:       config,
	}
}

// ===== CONVERSION METHODS =====

func toModel(casdoorUser *casdoorsdk.User, role models.UserRole) *models.User {
	var createdAt, updatedAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}
	if casdoorUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, casdoorUser.UpdatedTime)
	}

	var avatar *string
	if casdoorUser.Avatar != "" {
		a := casdoorUser.Avatar
		avatar = &a
	}

	fullName := casdoorUser.DisplayName
	if fullName == "" {
		fullName = casdoorUser.Name
	}

	return &models.User{
		ID:            casdoorUser.Id,
		FullName:      fullName,
		Email:         casdoorUser.Email,
		Role:          role,
		AvatarURL:     avatar,
		EmailVerified: casdoorUser.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// resolveRole returns the stored role, creating the default one on first sight.
// Casdoor organization admins are bootstrapped as admin.
func (u *UserCasdoor) resolveRole(ctx context.Context, casdoorUser *casdoorsdk.User) (models.UserRole, error) {
	role := models.DefaultRole
	if casdoorUser.IsAdmin {
		role = models.RoleAdmin
	}
	return u.roles.EnsureRole(ctx, nil, casdoorUser.Id, role)
}

// cacheGeneration is taken before reading Casdoor and handed to cacheUser
func (u *UserCasdoor) cacheGeneration(ctx context.Context) (int64, bool) {
	gen, err := u.cacheManager.User.Generation(ctx)
	return gen, err == nil
}

func (u *UserCasdoor) cacheUser(ctx context.Context, user *models.User, gen int64, ok bool) {
	if !ok {
		return
	}
	ttl := cache.UserCacheConfig.TTL
	_ = u.cacheManager.User.SetAt(ctx, "id:"+user.ID, user, ttl, gen)
	if user.Email != "" {
		_ = u.cacheManager.User.SetAt(ctx, "email:"+strings.ToLower(user.Email), user, ttl, gen)
	}
}

func (u *UserCasdoor) getCasdoorUser(id string) (*casdoorsdk.User, error) {
	casdoorUser, err := u.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	return casdoorUser, nil
}

// ===== BASIC READ OPERATIONS =====

func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	var cached models.User
	if err := u.cacheManager.User.Get(ctx, "id:"+id, &cached); err == nil {
		return &cached, nil
	}
	gen, cacheable := u.cacheGeneration(ctx)

	casdoorUser, err := u.getCasdoorUser(id)
	if err != nil {
		return nil, err
	}

	role, err := u.resolveRole(ctx, casdoorUser)
	if err != nil {
		return nil, err
	}

	user := toModel(casdoorUser, role)
	u.cacheUser(ctx, user, gen, cacheable)
	return user, nil
}

func (u *UserCasdoor) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	key := "email:" + strings.ToLower(email)
	var cached models.User
	if err := u.cacheManager.User.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}
	gen, cacheable := u.cacheGeneration(ctx)

	casdoorUser, err := u.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, fmt.Errorf("user with email %s: %w", email, repositories.ErrNotFound)
	}

	role, err := u.resolveRole(ctx, casdoorUser)
	if err != nil {
		return nil, err
	}

	user := toModel(casdoorUser, role)
	u.cacheUser(ctx, user, gen, cacheable)
	return user, nil
}

// GetByIDs returns the users that could be loaded, skipping unknown ids
func (u *UserCasdoor) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		user, err := u.GetByID(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// ===== VALIDATION AND CHECKS =====

func (u *UserCasdoor) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := u.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (u *UserCasdoor) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	casdoorUser, err := u.client.GetUserByEmail(email)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence by email: %w", err)
	}
	return casdoorUser != nil, nil
}

func (u *UserCasdoor) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, err := u.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.Role == role, nil
}

// ===== LIST AND SEARCH OPERATIONS =====

// List pages through users. With a role filter the page is taken from the role table.
func (u *UserCasdoor) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	filters.Limit = clampLimit(filters.Limit)

	if filters.Role != nil && filters.Query == "" {
		ids, total, err := u.roles.ListUserIDs(ctx, nil, *filters.Role, filters.Limit, filters.Offset)
		if err != nil {
			return nil, 0, err
		}
		users, err := u.GetByIDs(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		return users, total, nil
	}

	page := filters.Offset/filters.Limit + 1
	gen, cacheable := u.cacheGeneration(ctx)

	queryMap := make(map[string]string)
	if filters.Query != "" {
		queryMap["field"] = "displayName"
		if strings.Contains(filters.Query, "@") {
			queryMap["field"] = "email"
		}
		queryMap["value"] = filters.Query
	}

	casdoorUsers, count, err := u.client.GetPaginationUsers(page, filters.Limit, queryMap)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get users from Casdoor: %w", err)
	}

	ids := make([]string, 0, len(casdoorUsers))
	for _, cu := range casdoorUsers {
		ids = append(ids, cu.Id)
	}
	roles, err := u.roles.GetRoles(ctx, nil, ids)
	if err != nil {
		return nil, 0, err
	}

	users := make([]*models.User, 0, len(casdoorUsers))
	for _, cu := range casdoorUsers {
		role, ok := roles[cu.Id]
		if !ok {
			role = models.DefaultRole
			if cu.IsAdmin {
				role = models.RoleAdmin
			}
		}
		// a search narrowed by role filters the fetched page
		if filters.Role != nil && role != *filters.Role {
			count--
			continue
		}
		user := toModel(cu, role)
		u.cacheUser(ctx, user, gen, cacheable)
		users = append(users, user)
	}

	return users, int64(count), nil
}

func (u *UserCasdoor) Search(ctx context.Context, query string, filters repositories.UserFilters) ([]*models.User, int64, error) {
	filters.Query = strings.TrimSpace(query)
	return u.List(ctx, filters)
}

// ===== PRIVILEGED MUTATIONS =====

// Create registers a verified identity in Casdoor. The password goes to Casdoor only.
func (u *UserCasdoor) Create(ctx context.Context, identity repositories.NewIdentity) (*models.User, error) {
	exists, err := u.ExistsByEmail(ctx, identity.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("user with email %s: %w", identity.Email, repositories.ErrDuplicate)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	casdoorUser := &casdoorsdk.User{
		Owner:             u.config.OrganizationName,
		Name:              id,
		Id:                id,
		CreatedTime:       now,
		UpdatedTime:       now,
		Type:              "normal-user",
		DisplayName:       identity.FullName,
		Email:             identity.Email,
		EmailVerified:     true,
		Password:          identity.Password,
		SignupApplication: u.config.ApplicationName,
	}

	affected, err := u.client.AddUser(casdoorUser)
	if err != nil {
		return nil, fmt.Errorf("failed to create user in Casdoor: %w", err)
	}
	if !affected {
		return nil, fmt.Errorf("create user: %w", ErrIdentityRejected)
	}

	casdoorUser.Password = ""
	return toModel(casdoorUser, models.DefaultRole), nil
}

func (u *UserCasdoor) Delete(ctx context.Context, id string) error {
	casdoorUser, err := u.getCasdoorUser(id)
	if err != nil {
		return err
	}

	affected, err := u.client.DeleteUser(casdoorUser)
	if err != nil {
		return fmt.Errorf("failed to delete user in Casdoor: %w", err)
	}
	if !affected {
		return fmt.Errorf("delete user: %w", ErrIdentityRejected)
	}

	u.InvalidateCache(ctx, id)
	return nil
}

// SetPassword replaces the credential without knowing the current one
func (u *UserCasdoor) SetPassword(ctx context.Context, id, newPassword string) error {
	return u.setPassword(id, "", newPassword)
}

func (u *UserCasdoor) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	return u.setPassword(id, currentPassword, newPassword)
}

func (u *UserCasdoor) setPassword(id, oldPassword, newPassword string) error {
	casdoorUser, err := u.getCasdoorUser(id)
	if err != nil {
		return err
	}

	affected, err := u.client.SetPassword(casdoorUser.Owner, casdoorUser.Name, oldPassword, newPassword)
	if err != nil {
		return fmt.Errorf("failed to set password in Casdoor: %w", err)
	}
	if !affected {
		return fmt.Errorf("set password: %w", ErrIdentityRejected)
	}
	return nil
}

func (u *UserCasdoor) UpdateProfile(ctx context.Context, id string, update repositories.ProfileUpdate) (*models.User, error) {
	gen, cacheable := u.cacheGeneration(ctx)
	casdoorUser, err := u.getCasdoorUser(id)
	if err != nil {
		return nil, err
	}

	var columns []string
	if update.FullName != nil {
		casdoorUser.DisplayName = *update.FullName
		columns = append(columns, "displayName")
	}
	if update.AvatarURL != nil {
		casdoorUser.Avatar = *update.AvatarURL
		columns = append(columns, "avatar")
	}

	if len(columns) > 0 {
		casdoorUser.UpdatedTime = time.Now().UTC().Format(time.RFC3339)
		if _, err := u.client.UpdateUserForColumns(casdoorUser, columns); err != nil {
			return nil, fmt.Errorf("failed to update user in Casdoor: %w", err)
		}
		u.InvalidateCache(ctx, id)
		// the written profile is current as of our own invalidation
		gen, cacheable = u.cacheGeneration(ctx)
	}

	role, err := u.resolveRole(ctx, casdoorUser)
	if err != nil {
		return nil, err
	}
	user := toModel(casdoorUser, role)
	u.cacheUser(ctx, user, gen, cacheable)
	return user, nil
}

func (u *UserCasdoor) InvalidateCache(ctx context.Context, id string) {
	cache.InvalidateUser(ctx, u.cacheManager, id)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 10
	case limit > 100:
		return 100
	}
	return limit
}
