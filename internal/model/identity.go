package model

// Identity is the normalized user attached to a request, whichever table it came from.
type Identity struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Role         Role            `json:"role"`
	Phone        *string         `json:"phone,omitempty"`
	IsAdmin      bool            `json:"is_admin"`
	IsVerified   bool            `json:"is_verified"`
	StudentID    *string         `json:"student_id,omitempty"`
	TeacherID    *string         `json:"teacher_id,omitempty"`
	ProfileImage *string         `json:"profile_image,omitempty"`
	StudentData  *StudentProfile `json:"student_data,omitempty"`
}

// Shared is the part of an Identity safe to hand to templates and clients.
type Shared struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Role         Role    `json:"role"`
	ProfileImage *string `json:"profile_image,omitempty"`
}

// IdentityFromStudent synthesizes a student identity; the email is {nipd}@{domain}.
func IdentityFromStudent(profile StudentProfile, domain string) Identity {
	data := profile
	id := profile.ID
	return Identity{
		ID:          profile.ID,
		Name:        profile.Name,
		Email:       profile.NIPD + "@" + domain,
		Role:        RoleStudent,
		StudentID:   &id,
		StudentData: &data,
	}
}

func IdentityFromAccount(account Account) Identity {
	return Identity{
		ID:           account.ID,
		Name:         account.Name,
		Email:        account.Email,
		Role:         account.Role,
		Phone:        account.Phone,
		IsAdmin:      account.IsAdmin,
		IsVerified:   account.IsVerified,
		StudentID:    account.StudentID,
		TeacherID:    account.TeacherID,
		ProfileImage: account.ProfileImage,
	}
}

func (i Identity) Shared() Shared {
	return Shared{
		ID:           i.ID,
		Name:         i.Name,
		Email:        i.Email,
		Role:         i.Role,
		ProfileImage: i.ProfileImage,
	}
}
