package model

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

// AllBloodGroups lists the groups in display order.
var AllBloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg,
	BloodGroupOPos, BloodGroupONeg,
}

// donorGroupsFor maps a recipient group to the donor groups it can receive red cells from.
var donorGroupsFor = map[BloodGroup][]BloodGroup{
	BloodGroupONeg:  {BloodGroupONeg},
	BloodGroupOPos:  {BloodGroupOPos, BloodGroupONeg},
	BloodGroupANeg:  {BloodGroupANeg, BloodGroupONeg},
	BloodGroupAPos:  {BloodGroupAPos, BloodGroupANeg, BloodGroupOPos, BloodGroupONeg},
	BloodGroupBNeg:  {BloodGroupBNeg, BloodGroupONeg},
	BloodGroupBPos:  {BloodGroupBPos, BloodGroupBNeg, BloodGroupOPos, BloodGroupONeg},
	BloodGroupABNeg: {BloodGroupABNeg, BloodGroupANeg, BloodGroupBNeg, BloodGroupONeg},
	BloodGroupABPos: AllBloodGroups,
}

func (g BloodGroup) IsValid() bool {
	_, ok := donorGroupsFor[g]
	return ok
}

// CompatibleDonorGroups returns the donor groups a recipient of group g can receive.
func (g BloodGroup) CompatibleDonorGroups() BloodGroupList {
	groups := donorGroupsFor[g]
	list := make(BloodGroupList, 0, len(groups))
	for _, d := range groups {
		list = append(list, string(d))
	}
	return list
}

// BloodGroupList is stored as a postgres text[] and as encoded text elsewhere.
type BloodGroupList []string

func (l BloodGroupList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

func (l *BloodGroupList) Scan(src interface{}) error {
	return (*pq.StringArray)(l).Scan(src)
}

func (BloodGroupList) GormDataType() string {
	return "text"
}

func (BloodGroupList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Contains reports whether g is in the list.
func (l BloodGroupList) Contains(g BloodGroup) bool {
	for _, v := range l {
		if v == string(g) {
			return true
		}
	}
	return false
}
