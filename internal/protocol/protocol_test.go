package protocol

import (
	"errors"
	"testing"
)

func TestParseCtrl_ValidSamples(t *testing.T) {
	cases := []struct {
		raw  string
		want CtrlMsg
	}{
		{
			`griduniverse_ctrl:{"type":"move","player_id":7,"move":"left"}`,
			CtrlMsg{Type: TypeMove, PlayerID: "7", Move: "left"},
		},
		{
			`griduniverse_ctrl:{"type":"chat","player_id":"3","contents":"hello!","broadcast":"true"}`,
			CtrlMsg{Type: TypeChat, PlayerID: "3", Contents: "hello!", Broadcast: true},
		},
		{
			`griduniverse_ctrl:{"type":"connect","player_id":"spectator"}`,
			CtrlMsg{Type: TypeConnect, PlayerID: "spectator"},
		},
		{
			`griduniverse_ctrl:{"type":"change_color","player_id":2,"color":"RED"}`,
			CtrlMsg{Type: TypeChangeColor, PlayerID: "2", Color: "RED"},
		},
		{
			`griduniverse_ctrl:{"type":"donation","donor_id":1,"recipient_id":"group:0","amount":2}`,
			CtrlMsg{Type: TypeDonation, DonorID: "1", RecipientID: "group:0", Amount: 2},
		},
	}
	for _, tc := range cases {
		got, err := ParseCtrl(tc.raw)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parse %s: got=%+v want=%+v", tc.raw, got, tc.want)
		}
	}
}

func TestParseCtrl_Rejects(t *testing.T) {
	if _, err := ParseCtrl(`{"type":"move"}`); !errors.Is(err, ErrNotControl) {
		t.Fatalf("err=%v want ErrNotControl", err)
	}
	bad := []string{
		`griduniverse_ctrl:{not json`,
		`griduniverse_ctrl:{"type":"teleport","player_id":1}`,
		`griduniverse_ctrl:{"type":"move","player_id":1}`,
		`griduniverse_ctrl:{"type":"move","player_id":1,"move":"sideways"}`,
		`griduniverse_ctrl:{"type":"donation","donor_id":1,"recipient_id":"all","amount":0}`,
	}
	for _, raw := range bad {
		if _, err := ParseCtrl(raw); !errors.Is(err, ErrBadMessage) {
			t.Fatalf("parse %s: err=%v want ErrBadMessage", raw, err)
		}
	}
}

func TestEncodeCtrl_RoundTrip(t *testing.T) {
	in := CtrlMsg{Type: TypeMove, PlayerID: "4", Move: "up"}
	raw, err := EncodeCtrl(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := ParseCtrl(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	if out != in {
		t.Fatalf("got=%+v want=%+v", out, in)
	}
}

func TestID_Participant(t *testing.T) {
	cases := map[ID]bool{"1": true, "42": true, "spectator": false, "": false, "observer-x": false}
	for id, want := range cases {
		if got := id.Participant(); got != want {
			t.Fatalf("ID(%q).Participant()=%v want=%v", id, got, want)
		}
	}
}
