package services

import (
	"sort"
	"strings"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/internal/security"
	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PermissionSet is the resolved set of codes a user holds.
type PermissionSet map[models.PermissionCode]struct{}

func (p PermissionSet) Has(code models.PermissionCode) bool {
	_, ok := p[code]
	return ok
}

// Codes returns the codes in catalog order.
func (p PermissionSet) Codes() []models.PermissionCode {
	codes := make([]models.PermissionCode, 0, len(p))
	for _, def := range models.PermissionCatalog {
		if p.Has(def.Code) {
			codes = append(codes, def.Code)
		}
	}
	return codes
}

type AccessService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewAccessService(db *gorm.DB, audit *AuditService) *AccessService {
	return &AccessService{db: db, audit: audit}
}

// SeedDefaults inserts the permission catalog, the default roles, and
// their grants if absent. Safe to call on every start.
func (s *AccessService) SeedDefaults() error {
	perms := make([]models.Permission, 0, len(models.PermissionCatalog))
	for _, def := range models.PermissionCatalog {
		perms = append(perms, models.Permission{Code: def.Code, Description: def.Description})
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&perms).Error; err != nil {
		return errors.Internal(err, "failed to seed permissions")
	}

	for _, def := range models.DefaultRoles {
		role := models.Role{Name: def.Name}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
			return errors.Internal(err, "failed to seed role")
		}
		if err := s.db.Where("name = ?", def.Name).First(&role).Error; err != nil {
			return errors.Internal(err, "failed to load seeded role")
		}
		ids, err := s.permissionIDs(def.Permissions)
		if err != nil {
			return err
		}
		if err := s.grant(role.ID, ids); err != nil {
			return err
		}
	}
	return nil
}

// PermissionsFor resolves the codes reachable through the user's roles.
// ADMIN_ALL expands to the whole catalog.
func (s *AccessService) PermissionsFor(userID uint) (PermissionSet, error) {
	var codes []models.PermissionCode
	err := s.db.Table("permissions p").
		Joins("JOIN role_permissions rp ON rp.permission_id = p.id").
		Joins("JOIN user_roles ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ?", userID).
		Pluck("p.code", &codes).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to resolve permissions")
	}

	set := make(PermissionSet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	if set.Has(models.PermAdminAll) {
		for _, def := range models.PermissionCatalog {
			set[def.Code] = struct{}{}
		}
	}
	return set, nil
}

func (s *AccessService) Has(userID uint, code models.PermissionCode) (bool, error) {
	set, err := s.PermissionsFor(userID)
	if err != nil {
		return false, err
	}
	return set.Has(code), nil
}

// Require returns a FORBIDDEN error unless the user holds code.
func (s *AccessService) Require(userID uint, code models.PermissionCode) error {
	ok, err := s.Has(userID, code)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Forbidden("missing permission " + string(code))
	}
	return nil
}

func (s *AccessService) Roles() ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.Order("name").Find(&roles).Error; err != nil {
		return nil, errors.Internal(err, "failed to list roles")
	}
	return roles, nil
}

// RolePermissions lists the codes granted directly to a role.
func (s *AccessService) RolePermissions(roleID uint) ([]models.PermissionCode, error) {
	var codes []models.PermissionCode
	err := s.db.Table("permissions p").
		Joins("JOIN role_permissions rp ON rp.permission_id = p.id").
		Where("rp.role_id = ?", roleID).
		Order("p.code").
		Pluck("p.code", &codes).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to list role permissions")
	}
	return codes, nil
}

func (s *AccessService) CreateRole(actor Actor, name, description string) (uint, error) {
	name = security.SanitizeText(name)
	if name == "" {
		return 0, errors.Validation("role name is required")
	}
	role := &models.Role{Name: name, Description: security.SanitizeText(description)}
	if err := s.db.Create(role).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, errors.New(errors.ErrCodeAlreadyExists, "role already exists")
		}
		return 0, errors.Internal(err, "failed to create role")
	}
	err := s.audit.Record(actor, ActionRoleCreate, EntityRole, idString(role.ID), nil,
		State{"name": role.Name, "description": role.Description}, nil)
	return role.ID, err
}

// SetRolePermissions replaces the role's grants with codes.
func (s *AccessService) SetRolePermissions(actor Actor, roleID uint, codes []models.PermissionCode) error {
	var role models.Role
	if err := s.db.First(&role, roleID).Error; err != nil {
		if isRecordNotFound(err) {
			return errors.NotFound("role not found")
		}
		return errors.Internal(err, "failed to load role")
	}
	for _, c := range codes {
		if !c.Valid() {
			return errors.Validation("unknown permission " + string(c))
		}
	}

	prev, err := s.RolePermissions(roleID)
	if err != nil {
		return err
	}
	ids, err := s.permissionIDs(codes)
	if err != nil {
		return err
	}
	if err := s.db.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
		return errors.Internal(err, "failed to clear role permissions")
	}
	if err := s.grant(roleID, ids); err != nil {
		return err
	}

	next := sortedCodes(codes)
	return s.audit.Record(actor, ActionRolePermsSet, EntityRole, idString(roleID),
		State{"permissions": prev}, State{"permissions": next}, nil)
}

// SetUserRoles replaces the user's role memberships.
func (s *AccessService) SetUserRoles(actor Actor, userID uint, roleIDs []uint) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if isRecordNotFound(err) {
			return errors.NotFound("user not found")
		}
		return errors.Internal(err, "failed to load user")
	}

	unique := uniqueIDs(roleIDs)
	var found int64
	if len(unique) > 0 {
		if err := s.db.Model(&models.Role{}).Where("id IN ?", unique).Count(&found).Error; err != nil {
			return errors.Internal(err, "failed to check roles")
		}
	}
	if int(found) != len(unique) {
		return errors.NotFound("role not found")
	}

	var prev []uint
	if err := s.db.Model(&models.UserRole{}).Where("user_id = ?", userID).Order("role_id").Pluck("role_id", &prev).Error; err != nil {
		return errors.Internal(err, "failed to load user roles")
	}
	if err := s.db.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
		return errors.Internal(err, "failed to clear user roles")
	}
	if len(unique) > 0 {
		rows := make([]models.UserRole, 0, len(unique))
		for _, id := range unique {
			rows = append(rows, models.UserRole{UserID: userID, RoleID: id})
		}
		if err := s.db.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return errors.Internal(err, "failed to assign roles")
		}
	}

	return s.audit.Record(actor, ActionUserRolesSet, EntityUser, idString(userID),
		State{"role_ids": prev}, State{"role_ids": unique}, nil)
}

// roleIDsByName resolves role names, failing on the first unknown one.
func (s *AccessService) roleIDsByName(names []string) ([]uint, error) {
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		var role models.Role
		if err := s.db.Where("name = ?", strings.TrimSpace(name)).First(&role).Error; err != nil {
			if isRecordNotFound(err) {
				return nil, errors.Auth("unknown role: " + name)
			}
			return nil, errors.Internal(err, "failed to load role")
		}
		ids = append(ids, role.ID)
	}
	return ids, nil
}

func (s *AccessService) permissionIDs(codes []models.PermissionCode) ([]uint, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := s.db.Model(&models.Permission{}).Where("code IN ?", codes).Pluck("id", &ids).Error; err != nil {
		return nil, errors.Internal(err, "failed to resolve permission ids")
	}
	return ids, nil
}

func (s *AccessService) grant(roleID uint, permissionIDs []uint) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	rows := make([]models.RolePermission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		rows = append(rows, models.RolePermission{RoleID: roleID, PermissionID: id})
	}
	err := s.db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	if err != nil {
		return errors.Internal(err, "failed to grant permissions")
	}
	return nil
}

func sortedCodes(codes []models.PermissionCode) []models.PermissionCode {
	out := append([]models.PermissionCode(nil), codes...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
