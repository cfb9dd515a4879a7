// Package checker - Test so sánh snapshot hồ sơ và render dòng thay đổi.
package checker

import (
	"testing"

	trackermodels "github.com/goagain/ircc-tracker/internal/api/tracker/models"
)

func TestCompare_FirstObservationNoChanges(t *testing.T) {
	current := &trackermodels.ApplicationStatusRecord{
		ApplicationNumber: "C000012345",
		Status:            "InProcess",
		LastUpdatedTime:   1700000000000,
		Activities: []trackermodels.Activity{
			{Activity: "backgroundVerification", Order: 1, Status: trackermodels.ActivityInProgress},
		},
	}
	changes := Compare(nil, current)
	if len(changes) != 0 {
		t.Errorf("lần quan sát đầu tiên không được phát sinh thay đổi, nhận được %d: %v", len(changes), changes)
	}
}

func TestCompare_NilCurrentNoChanges(t *testing.T) {
	previous := &trackermodels.ApplicationStatusRecord{Status: "InProcess"}
	changes := Compare(previous, nil)
	if len(changes) != 0 {
		t.Errorf("current nil không được phát sinh thay đổi, nhận được %v", changes)
	}
}

func TestCompare_StatusAndTimestampChanged(t *testing.T) {
	previous := &trackermodels.ApplicationStatusRecord{
		Status:          "InProcess",
		LastUpdatedTime: 1700000000000,
	}
	current := &trackermodels.ApplicationStatusRecord{
		Status:          "DecisionMade",
		LastUpdatedTime: 1700000999000,
	}

	changes := Compare(previous, current)
	if len(changes) != 2 {
		t.Fatalf("kỳ vọng 2 thay đổi, nhận được %d: %v", len(changes), changes)
	}
	if changes[0].Subject != "Application Status" || changes[0].Kind != ChangeKindChanged {
		t.Errorf("thay đổi đầu tiên phải là Application Status Changed, nhận được %+v", changes[0])
	}
	if changes[0].OldValue != "InProcess" || changes[0].NewValue != "DecisionMade" {
		t.Errorf("giá trị status cũ/mới sai: %+v", changes[0])
	}
	if changes[1].Subject != "Last Updated Time" {
		t.Errorf("thay đổi thứ hai phải là Last Updated Time, nhận được %+v", changes[1])
	}
	if changes[1].OldValue != "1700000000000" || changes[1].NewValue != "1700000999000" {
		t.Errorf("giá trị timestamp cũ/mới sai: %+v", changes[1])
	}
}

func TestCompare_ActivityAddedAndChanged(t *testing.T) {
	previous := &trackermodels.ApplicationStatusRecord{
		Status:          "InProcess",
		LastUpdatedTime: 1,
		Activities: []trackermodels.Activity{
			{Activity: "backgroundVerification", Order: 1, Status: trackermodels.ActivityInProgress},
		},
	}
	current := &trackermodels.ApplicationStatusRecord{
		Status:          "InProcess",
		LastUpdatedTime: 1,
		Activities: []trackermodels.Activity{
			{Activity: "backgroundVerification", Order: 1, Status: trackermodels.ActivityCompleted},
			{Activity: "citizenshipTest", Order: 2, Status: trackermodels.ActivityNotStarted},
		},
	}

	changes := Compare(previous, current)
	if len(changes) != 2 {
		t.Fatalf("kỳ vọng 2 thay đổi activity, nhận được %d: %v", len(changes), changes)
	}
	if changes[0].Subject != "backgroundVerification" || changes[0].Kind != ChangeKindChanged {
		t.Errorf("activity đổi trạng thái phải báo Changed, nhận được %+v", changes[0])
	}
	if changes[0].OldValue != trackermodels.ActivityInProgress || changes[0].NewValue != trackermodels.ActivityCompleted {
		t.Errorf("giá trị cũ/mới của activity sai: %+v", changes[0])
	}
	if changes[1].Subject != "citizenshipTest" || changes[1].Kind != ChangeKindAdded {
		t.Errorf("activity mới phải báo Added, nhận được %+v", changes[1])
	}
	if changes[1].OldValue != "N/A" {
		t.Errorf("activity mới phải có giá trị cũ N/A, nhận được %q", changes[1].OldValue)
	}
}

func TestCompare_HistoryAddedBeyondPrevious(t *testing.T) {
	previous := &trackermodels.ApplicationStatusRecord{
		Status:          "InProcess",
		LastUpdatedTime: 1,
		History: []trackermodels.HistoryRecord{
			{Time: 100, Activity: "INITIAL INITIAL"},
		},
	}
	// Entry mới nằm trước entry cũ trong slice để kiểm tra việc sắp theo Time.
	current := &trackermodels.ApplicationStatusRecord{
		Status:          "InProcess",
		LastUpdatedTime: 1,
		History: []trackermodels.HistoryRecord{
			{Time: 200, Type: "Activity", Activity: "28 BIRTH_CERT"},
			{Time: 100, Activity: "INITIAL INITIAL"},
		},
	}

	changes := Compare(previous, current)
	if len(changes) != 1 {
		t.Fatalf("kỳ vọng 1 event mới, nhận được %d: %v", len(changes), changes)
	}
	if changes[0].Subject != "Event" || changes[0].Kind != ChangeKindAdded {
		t.Errorf("event mới phải là Event Added, nhận được %+v", changes[0])
	}
	if changes[0].OldValue != "28 BIRTH_CERT" || changes[0].NewValue != "28 BIRTH_CERT" {
		t.Errorf("nhãn event phải được sắp theo Time và lấy entry mới nhất, nhận được %+v", changes[0])
	}
}

func TestCompare_HistoryLabelPrefersEnglishTitle(t *testing.T) {
	current := &trackermodels.ApplicationStatusRecord{
		Status:          "InProcess",
		LastUpdatedTime: 1,
		History: []trackermodels.HistoryRecord{
			{
				Time:     300,
				Activity: "raw-activity",
				Title:    &trackermodels.BilingualText{En: "We received your application", Fr: "Nous avons reçu votre demande"},
			},
		},
	}
	changes := Compare(&trackermodels.ApplicationStatusRecord{Status: "InProcess", LastUpdatedTime: 1}, current)
	if len(changes) != 1 {
		t.Fatalf("kỳ vọng 1 thay đổi, nhận được %v", changes)
	}
	if changes[0].OldValue != "We received your application" {
		t.Errorf("nhãn event phải ưu tiên title tiếng Anh, nhận được %q", changes[0].OldValue)
	}
}

func TestChangeString_Format(t *testing.T) {
	c := Change{Subject: "Application Status", Kind: ChangeKindChanged, OldValue: "InProcess", NewValue: "DecisionMade"}
	got := c.String()
	want := "Changed: Application Status: InProcess -> DecisionMade"
	if got != want {
		t.Errorf("render dòng thay đổi sai: kỳ vọng %q, nhận được %q", want, got)
	}
}
