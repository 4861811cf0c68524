package profile

// Contribution is the user's current PF contribution status.
type Contribution string

const (
	ContributionActive   Contribution = "active"
	ContributionInactive Contribution = "inactive"
)

// WithdrawalType is the purpose of the requested PF withdrawal.
type WithdrawalType string

const (
	WithdrawalHomeLoanRepayment WithdrawalType = "home_loan_repayment"
	WithdrawalHousePurchase     WithdrawalType = "house_purchase"
	WithdrawalMedicalEmergency  WithdrawalType = "medical_emergency"
	WithdrawalEducation         WithdrawalType = "education"
	WithdrawalMarriage          WithdrawalType = "marriage"
	WithdrawalUnemployment      WithdrawalType = "unemployment"
	WithdrawalHomeRenovation    WithdrawalType = "home_renovation"
	WithdrawalRetirement        WithdrawalType = "retirement"
)

// PreviousWithdrawals records whether the user has withdrawn from their PF before.
type PreviousWithdrawals string

const (
	PreviousNone PreviousWithdrawals = "none"
	PreviousYes  PreviousWithdrawals = "yes"
)

// Field names a Profile field. Values match the JSON keys.
type Field string

const (
	FieldContribution        Field = "pf_contribution"
	FieldServiceYears        Field = "service_years"
	FieldWithdrawalType      Field = "withdrawal_type"
	FieldPreviousWithdrawals Field = "previous_withdrawals"
	FieldCurrentBalance      Field = "current_balance"
)

// Profile holds the facts gathered so far about one user's situation.
// The zero value has every field unknown. Enum fields use "" for unknown;
// numeric fields use nil so that zero stays a concrete value.
type Profile struct {
	Contribution        Contribution        `json:"pf_contribution,omitempty"`
	ServiceYears        *int                `json:"service_years,omitempty"`
	WithdrawalType      WithdrawalType      `json:"withdrawal_type,omitempty"`
	PreviousWithdrawals PreviousWithdrawals `json:"previous_withdrawals,omitempty"`
	CurrentBalance      *float64            `json:"current_balance,omitempty"`
}

// IsSet reports whether field f holds a concrete value.
func (p Profile) IsSet(f Field) bool {
	switch f {
	case FieldContribution:
		return p.Contribution != ""
	case FieldServiceYears:
		return p.ServiceYears != nil
	case FieldWithdrawalType:
		return p.WithdrawalType != ""
	case FieldPreviousWithdrawals:
		return p.PreviousWithdrawals != ""
	case FieldCurrentBalance:
		return p.CurrentBalance != nil
	}
	return false
}

// IsEmpty reports whether no field is set.
func (p Profile) IsEmpty() bool {
	return p.Contribution == "" && p.ServiceYears == nil && p.WithdrawalType == "" &&
		p.PreviousWithdrawals == "" && p.CurrentBalance == nil
}

// Clone returns a copy that shares no pointers with p.
func (p Profile) Clone() Profile {
	cp := p
	if p.ServiceYears != nil {
		v := *p.ServiceYears
		cp.ServiceYears = &v
	}
	if p.CurrentBalance != nil {
		v := *p.CurrentBalance
		cp.CurrentBalance = &v
	}
	return cp
}
