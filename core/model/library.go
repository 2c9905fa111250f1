package model

import "database/sql/driver"

type ResourceType string

const (
	ResourceLink        ResourceType = "link"
	ResourceVideo       ResourceType = "video"
	ResourceAudio       ResourceType = "audio"
	ResourcePDF         ResourceType = "pdf"
	ResourceImage       ResourceType = "image"
	ResourceDocument    ResourceType = "document"
	ResourceSpreadsheet ResourceType = "spreadsheet"
)

type Resource struct {
	ID         string       `json:"id" db:"id" validate:"required"`
	Name       string       `json:"name" db:"name" validate:"required,notblank"`
	Type       ResourceType `json:"type" db:"type" validate:"required,oneof=link video audio pdf image document spreadsheet"`
	URL        string       `json:"url" db:"url" validate:"required"`
	IsPublic   bool         `json:"isPublic" db:"is_public"`
	UploaderID string       `json:"uploaderId" db:"uploader_id" validate:"required"`
	AssignedTo Strings      `json:"assignedTo" db:"assigned_to"`
	Category   string       `json:"category" db:"category"`
}

func (r Resource) EntityID() string { return r.ID }

// VisibleTo reports whether u may see r: public resources, own uploads and
// resources assigned to u. Coaches and admins see everything.
func (r *Resource) VisibleTo(u *User) bool {
	if u == nil {
		return r.IsPublic
	}
	return r.IsPublic || u.CanManageStudents() || r.UploaderID == u.ID || r.AssignedTo.Contains(u.ID)
}

type (
	TemplateItem struct {
		ID   string `json:"id" validate:"required"`
		Text string `json:"text" validate:"required,notblank"`
	}

	TemplateItems []TemplateItem
)

func (t TemplateItems) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	return jsonValue(t)
}

func (t *TemplateItems) Scan(src interface{}) error { return jsonScan(src, t) }

type AssignmentTemplate struct {
	ID          string        `json:"id" db:"id" validate:"required"`
	Title       string        `json:"title" db:"title" validate:"required,notblank"`
	Description string        `json:"description" db:"description"`
	Checklist   TemplateItems `json:"checklist" db:"checklist" validate:"dive"`
	IsFavorite  bool          `json:"isFavorite" db:"is_favorite"`
}

func (t AssignmentTemplate) EntityID() string { return t.ID }

// NewChecklist returns fresh, uncompleted checklist items for an assignment built from t.
func (t *AssignmentTemplate) NewChecklist(newID func() string) Checklist {
	items := make(Checklist, 0, len(t.Checklist))
	for _, it := range t.Checklist {
		items = append(items, ChecklistItem{ID: newID(), Text: it.Text})
	}
	return items
}
