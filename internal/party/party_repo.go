package party

import (
	"errors"
	"time"

	"github.com/questhall/questhall/internal/profile"
	"gorm.io/gorm"
)

// PartyRepository defines the data operations for parties and their
// memberships.
type PartyRepository interface {
	CreatePartyWithLeader(p *Party) error
	GetPartyByID(id uint) (*Party, error)
	ListParties() ([]Party, error)
	UpdateParty(p *Party) error

	AddMember(partyID, userID uint) (*PartyMember, error)
	GetMember(partyID, memberID uint) (*PartyMember, error)
	GetMemberByUser(partyID, userID uint) (*PartyMember, error)
	RemoveMember(memberID uint) error
	ListMembers(partyID uint) ([]MemberWithProfile, error)
	ListAllMembers() ([]MemberWithProfile, error)

	RankExists(id uint) (bool, error)
}

type partyRepository struct {
	db *gorm.DB
}

func NewPartyRepository(db *gorm.DB) PartyRepository {
	return &partyRepository{db: db}
}

// CreatePartyWithLeader inserts the party and its leader membership in
// one transaction, so a party never exists without its leader enrolled.
func (r *partyRepository) CreatePartyWithLeader(p *Party) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		member := PartyMember{PartyID: p.ID, UserID: p.LeaderID, Role: RoleLeader}
		return tx.Create(&member).Error
	})
}

func (r *partyRepository) GetPartyByID(id uint) (*Party, error) {
	var p Party
	if err := r.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *partyRepository) ListParties() ([]Party, error) {
	var parties []Party
	if err := r.db.Order("created_at desc").Find(&parties).Error; err != nil {
		return nil, err
	}
	return parties, nil
}

func (r *partyRepository) UpdateParty(p *Party) error {
	return r.db.Save(p).Error
}

func (r *partyRepository) AddMember(partyID, userID uint) (*PartyMember, error) {
	member := PartyMember{PartyID: partyID, UserID: userID, Role: RoleMember}
	if err := r.db.Create(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *partyRepository) GetMember(partyID, memberID uint) (*PartyMember, error) {
	var member PartyMember
	if err := r.db.Where("id = ? AND party_id = ?", memberID, partyID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *partyRepository) GetMemberByUser(partyID, userID uint) (*PartyMember, error) {
	var member PartyMember
	if err := r.db.Where("party_id = ? AND user_id = ?", partyID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *partyRepository) RemoveMember(memberID uint) error {
	return r.db.Delete(&PartyMember{}, memberID).Error
}

type memberRow struct {
	ID          uint
	PartyID     uint
	UserID      uint
	Role        string
	CreatedAt   time.Time
	ProfileID   uint
	DisplayName string
	AvatarURL   string
}

func (rw memberRow) toMember() MemberWithProfile {
	return MemberWithProfile{
		ID:        rw.ID,
		PartyID:   rw.PartyID,
		UserID:    rw.UserID,
		Role:      rw.Role,
		CreatedAt: rw.CreatedAt,
		Profile: profile.PublicProfile{
			ID:          rw.ProfileID,
			DisplayName: rw.DisplayName,
			AvatarURL:   rw.AvatarURL,
		},
	}
}

func (r *partyRepository) membersQuery() *gorm.DB {
	return r.db.Table("party_members").
		Select("party_members.id, party_members.party_id, party_members.user_id, party_members.role, party_members.created_at, profiles.id as profile_id, profiles.display_name, profiles.avatar_url").
		Joins("LEFT JOIN profiles ON profiles.id = party_members.user_id AND profiles.deleted_at IS NULL").
		Where("party_members.deleted_at IS NULL").
		Order("party_members.created_at asc")
}

func (r *partyRepository) ListMembers(partyID uint) ([]MemberWithProfile, error) {
	var rows []memberRow
	err := r.membersQuery().Where("party_members.party_id = ?", partyID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]MemberWithProfile, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.toMember())
	}
	return out, nil
}

// ListAllMembers loads every membership in one pass so an expanded
// party listing does not query per party.
func (r *partyRepository) ListAllMembers() ([]MemberWithProfile, error) {
	var rows []memberRow
	if err := r.membersQuery().Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]MemberWithProfile, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.toMember())
	}
	return out, nil
}

func (r *partyRepository) RankExists(id uint) (bool, error) {
	var count int64
	err := r.db.Table("ranks").Where("id = ? AND deleted_at IS NULL", id).Count(&count).Error
	return count > 0, err
}
