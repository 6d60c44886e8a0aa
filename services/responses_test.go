package services

import (
	"testing"

	"github.com/pixieveil/pixieveil/dimse"
	"github.com/pixieveil/pixieveil/types"
)

func TestResponseBuilder_CEchoResponse(t *testing.T) {
	request := &types.Message{
		CommandField: dimse.CEchoRQ,
		MessageID:    42,
	}

	builder := NewResponseBuilder(request)
	response := builder.CEchoResponse(dimse.StatusSuccess)

	if response.CommandField != dimse.CEchoRSP {
		t.Errorf("CommandField = 0x%04x, want 0x%04x", response.CommandField, dimse.CEchoRSP)
	}

	if response.MessageIDBeingRespondedTo != 42 {
		t.Errorf("MessageIDBeingRespondedTo = %d, want 42", response.MessageIDBeingRespondedTo)
	}

	if response.Status != dimse.StatusSuccess {
		t.Errorf("Status = 0x%04x, want success", response.Status)
	}

	if response.AffectedSOPClassUID != types.VerificationSOPClass {
		t.Errorf("AffectedSOPClassUID = %s, want Verification SOP Class", response.AffectedSOPClassUID)
	}

	if response.CommandDataSetType != 0x0101 {
		t.Errorf("CommandDataSetType = 0x%04x, want 0x0101", response.CommandDataSetType)
	}
}

func TestResponseBuilder_CStoreResponse(t *testing.T) {
	request := &types.Message{
		CommandField:           dimse.CStoreRQ,
		MessageID:              20,
		AffectedSOPClassUID:    "1.2.840.10008.5.1.4.1.1.2",
		AffectedSOPInstanceUID: "1.2.3.4.5",
	}

	builder := NewResponseBuilder(request)
	response := builder.CStoreResponse(dimse.StatusSuccess, "")

	if response.CommandField != dimse.CStoreRSP {
		t.Errorf("CommandField = 0x%04x, want 0x%04x", response.CommandField, dimse.CStoreRSP)
	}

	if response.Status != dimse.StatusSuccess {
		t.Errorf("Status = 0x%04x, want success", response.Status)
	}

	if response.AffectedSOPClassUID != request.AffectedSOPClassUID {
		t.Errorf("AffectedSOPClassUID not preserved from request")
	}

	if response.AffectedSOPInstanceUID != request.AffectedSOPInstanceUID {
		t.Errorf("AffectedSOPInstanceUID not preserved from request")
	}

	if response.MessageIDBeingRespondedTo != 20 {
		t.Errorf("MessageIDBeingRespondedTo = %d, want 20", response.MessageIDBeingRespondedTo)
	}

	if response.CommandDataSetType != 0x0101 {
		t.Errorf("CommandDataSetType = 0x%04x, want 0x0101", response.CommandDataSetType)
	}
}

func TestResponseBuilder_CStoreResponse_CustomUID(t *testing.T) {
	request := &types.Message{
		CommandField: dimse.CStoreRQ,
		MessageID:    20,
	}

	customUID := "1.2.3.4.5.6"
	builder := NewResponseBuilder(request)
	response := builder.CStoreResponse(dimse.StatusSuccess, customUID)

	if response.AffectedSOPInstanceUID != customUID {
		t.Errorf("AffectedSOPInstanceUID = %s, want %s", response.AffectedSOPInstanceUID, customUID)
	}
}

// Test helper functions

func TestNewCEchoResponse(t *testing.T) {
	request := &types.Message{
		CommandField: dimse.CEchoRQ,
		MessageID:    1,
	}

	response := NewCEchoResponse(request, dimse.StatusSuccess)

	if response.CommandField != dimse.CEchoRSP {
		t.Errorf("CommandField = 0x%04x, want 0x%04x", response.CommandField, dimse.CEchoRSP)
	}

	if response.Status != dimse.StatusSuccess {
		t.Errorf("Status = 0x%04x, want success", response.Status)
	}
}

func TestNewCStoreResponse(t *testing.T) {
	request := &types.Message{
		CommandField:           dimse.CStoreRQ,
		MessageID:              7,
		AffectedSOPClassUID:    "1.2.840.10008.5.1.4.1.1.4",
		AffectedSOPInstanceUID: "1.2.3.4",
	}

	response := NewCStoreResponse(request, 0xC000)

	if response.CommandField != dimse.CStoreRSP {
		t.Errorf("CommandField = 0x%04x, want 0x%04x", response.CommandField, dimse.CStoreRSP)
	}

	if response.Status != 0xC000 {
		t.Errorf("Status = 0x%04x, want 0xC000", response.Status)
	}

	if response.AffectedSOPInstanceUID != "1.2.3.4" {
		t.Errorf("AffectedSOPInstanceUID = %s, want 1.2.3.4", response.AffectedSOPInstanceUID)
	}
}
