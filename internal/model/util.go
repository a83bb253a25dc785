package model

// MigrateAble is array of model instance, use for migrating database
var MigrateAble []interface{}

func init() {
	MigrateAble = append(
		MigrateAble,
		&PunishmentStruct{},
		&User{},
		&File{},
		&CandidateProfile{},
		&HRUser{},
		&Company{},
		&UsageMetrics{},
		&CandidateView{},
		&JobOpening{},
		&Interview{},
		&Visitor{},
		&Payment{},
	)
}

// AdminResponse is login response of admin
type AdminResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
}
