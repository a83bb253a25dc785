package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"

	"talentpool-backend/internal/matching"
	m "talentpool-backend/internal/model"
	"talentpool-backend/internal/utilities"
)

var testDBInstance *DBinstanceStruct
var teardown func(context.Context, ...testcontainers.TerminateOption) error

// Exported test users & profiles
var (
	TestAdminUser      m.User
	TestUserCandidate1 m.User
	TestUserCandidate2 m.User
	TestUserCandidate3 m.User
	TestUserHR1        m.User
	TestUserHR2        m.User
	TestCandidate1     m.CandidateProfile
	TestCandidate2     m.CandidateProfile
	TestCandidate3     m.CandidateProfile
	TestHR1            m.HRUser
	TestHR2            m.HRUser
	TestCompany1       m.Company
	TestCompany2       m.Company

	// Plain password of every seeded account
	TestSeedPassword = "SeedPass123!"

	seedHashOnce sync.Once
	seedHash     string
	seedHashErr  error
)

// GetTestDB starts a PostgreSQL test container and returns a teardown function,
// the DB instance, and any error encountered during setup.
func GetTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, *DBinstanceStruct, error) {
	if testDBInstance != nil && teardown != nil {
		return teardown, testDBInstance, nil
	}

	terminate, config, err := StartTestPostgres(context.Background())
	if err != nil {
		return terminate, nil, err
	}

	db, err := NewDBInstance(config)
	if err != nil {
		return terminate, nil, err
	}

	if err := seedTestData(db); err != nil {
		_ = terminate(context.Background())
		return nil, nil, err
	}

	testDBInstance = db
	teardown = terminate

	return terminate, db, nil
}

func hashedSeedPassword() (string, error) {
	seedHashOnce.Do(func() {
		seedHash, seedHashErr = utilities.HashPassword(TestSeedPassword)
	})
	return seedHash, seedHashErr
}

// NewTestCandidate create candidate account with TestSeedPassword and given profile
func NewTestCandidate(db *DBinstanceStruct, username string, info m.EditableCandidateInfo) (m.CandidateProfile, error) {
	hashed, err := hashedSeedPassword()
	if err != nil {
		return m.CandidateProfile{}, err
	}

	email := info.Email
	name := info.FullName
	profile := m.CandidateProfile{
		User: m.User{
			Username: username,
			Password: hashed,
			Role:     m.RoleCandidate,
			Email:    &email,
			EditableUserInfo: m.EditableUserInfo{
				Name: &name,
			},
		},
		EditableCandidateInfo: info,
	}
	profile.Score = matching.ProfileScore(profile)

	if err := db.Create(&profile).Error; err != nil {
		return m.CandidateProfile{}, fmt.Errorf("failed to seed candidate %s: %w", username, err)
	}
	return profile, nil
}

// NewTestHR create HR account with TestSeedPassword, a company in companyStatus
// (no company when empty) and usage counters holding quota views.
func NewTestHR(db *DBinstanceStruct, username string, companyName string, companyStatus string, quota int) (m.HRUser, error) {
	hashed, err := hashedSeedPassword()
	if err != nil {
		return m.HRUser{}, err
	}

	usage := m.NewUsageMetrics(m.PlanFree, time.Now())
	usage.QuotaLeft = quota

	hr := m.HRUser{
		User: m.User{
			Username: username,
			Password: hashed,
			Role:     m.RoleHR,
		},
		EditableHRInfo: m.EditableHRInfo{
			FullName: username,
			Position: "Recruiter",
		},
		Usage: &usage,
	}
	if companyStatus != "" {
		hr.Company = &m.Company{
			EditableCompanyInfo: m.EditableCompanyInfo{
				Name:     companyName,
				Overview: companyName + " overview",
				Industry: "Software",
			},
			VerifiedStatus: companyStatus,
		}
	}

	if err := db.Create(&hr).Error; err != nil {
		return m.HRUser{}, fmt.Errorf("failed to seed hr %s: %w", username, err)
	}
	return hr, nil
}

// seedTestData inserts admin, candidates, HR users and their companies.
func seedTestData(db *DBinstanceStruct) error {
	hashed, err := hashedSeedPassword()
	if err != nil {
		return err
	}

	adminEmail, adminName := "admin@example.com", "Admin"
	TestAdminUser = m.User{
		Username: "admin_user",
		Password: hashed,
		Role:     m.RoleAdmin,
		Email:    &adminEmail,
		EditableUserInfo: m.EditableUserInfo{
			Name: &adminName,
		},
	}
	if err := db.Create(&TestAdminUser).Error; err != nil {
		return err
	}

	candidates := []struct {
		username string
		target   *m.CandidateProfile
		info     m.EditableCandidateInfo
	}{
		{"candidate_1", &TestCandidate1, m.EditableCandidateInfo{
			FullName:        "Alice Nguyen",
			Email:           "alice@example.com",
			Phone:           "0100000001",
			Skills:          pq.StringArray{"Go", "PostgreSQL", "Docker", "Kubernetes"},
			Experience:      "Built payment microservices and event pipelines",
			ExperienceYears: 4,
			Education:       "BSc Computer Engineering",
			JobTitle:        "Backend Engineer",
		}},
		{"candidate_2", &TestCandidate2, m.EditableCandidateInfo{
			FullName:        "Bob Somsak",
			Email:           "bob@example.com",
			Phone:           "0100000002",
			Skills:          pq.StringArray{"React", "TypeScript", "CSS", "Node.js"},
			Experience:      "Designed component libraries for ecommerce",
			ExperienceYears: 2,
			Education:       "BSc Software Engineering",
			JobTitle:        "Frontend Developer",
		}},
		{"candidate_3", &TestCandidate3, m.EditableCandidateInfo{
			FullName:        "Chai Wong",
			Email:           "chai@example.com",
			Phone:           "0100000003",
			Skills:          pq.StringArray{"Python", "Machine Learning", "SQL"},
			Experience:      "Forecasting models for retail demand",
			ExperienceYears: 6,
			Education:       "MSc Data Science",
			JobTitle:        "Data Scientist",
		}},
	}
	for _, c := range candidates {
		profile, err := NewTestCandidate(db, c.username, c.info)
		if err != nil {
			return err
		}
		*c.target = profile
	}
	TestUserCandidate1 = TestCandidate1.User
	TestUserCandidate2 = TestCandidate2.User
	TestUserCandidate3 = TestCandidate3.User

	TestHR1, err = NewTestHR(db, "hr_user_1", "TechNova", m.StatusVerified, 10)
	if err != nil {
		return err
	}
	TestHR2, err = NewTestHR(db, "hr_user_2", "DataForge", m.StatusPending, 10)
	if err != nil {
		return err
	}
	TestUserHR1 = TestHR1.User
	TestUserHR2 = TestHR2.User
	TestCompany1 = *TestHR1.Company
	TestCompany2 = *TestHR2.Company

	return nil
}
