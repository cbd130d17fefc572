package protocol

// Message payloads for the packet ids this core recognises (spec.md
// §4.6). Field layouts follow the C3 fixed-width LE codec; MsgRegister
// and MsgAction are transcribed field-for-field from the reference
// implementation (msg_register.rs, msg_action.rs) — the rest are this
// core's minimal illustrative shape for the contracts spec.md §8's
// scenarios exercise, not the full historical TQ wire format.

// AccountLogin is MsgAccount's payload: the auth process's only inbound
// packet kind.
type AccountLogin struct {
	Username String16
	Password TQPassword
}

func (a AccountLogin) Encode() []byte {
	w := NewWriter(String16Size + TQPasswordSize)
	w.WriteString16(a.Username)
	w.WriteTQPassword(a.Password)
	return w.Bytes()
}

func DecodeAccountLogin(b []byte) (AccountLogin, error) {
	r := NewReader(b)
	a := AccountLogin{Username: r.ReadString16(), Password: r.ReadTQPassword()}
	return a, r.Done()
}

// ConnectEx is the auth process's response to a successful MsgAccount:
// the game host/port to connect to and the freshly minted login token
// (spec.md §8 scenario 2).
type ConnectEx struct {
	Host  String16
	Port  uint16
	Token uint32
}

func (c ConnectEx) Encode() []byte {
	w := NewWriter(String16Size + 2 + 4)
	w.WriteString16(c.Host)
	w.WriteU16(c.Port)
	w.WriteU32(c.Token)
	return w.Bytes()
}

func DecodeConnectEx(b []byte) (ConnectEx, error) {
	r := NewReader(b)
	c := ConnectEx{Host: r.ReadString16(), Port: r.ReadU16(), Token: r.ReadU32()}
	return c, r.Done()
}

// Transfer is MsgTransfer's payload, carried only over the NopCipher RPC
// channel from auth to game (spec.md §6 "RPC channel").
type Transfer struct {
	Token     uint32
	AccountID uint32
	RealmID   uint32
}

func (t Transfer) Encode() []byte {
	w := NewWriter(12)
	w.WriteU32(t.Token)
	w.WriteU32(t.AccountID)
	w.WriteU32(t.RealmID)
	return w.Bytes()
}

func DecodeTransfer(b []byte) (Transfer, error) {
	r := NewReader(b)
	t := Transfer{Token: r.ReadU32(), AccountID: r.ReadU32(), RealmID: r.ReadU32()}
	return t, r.Done()
}

// Connect is MsgConnect's payload: a client handing its login token to
// the game process (spec.md §8 scenario 2).
type Connect struct {
	Token uint32
}

func (c Connect) Encode() []byte {
	w := NewWriter(4)
	w.WriteU32(c.Token)
	return w.Bytes()
}

func DecodeConnect(b []byte) (Connect, error) {
	r := NewReader(b)
	c := Connect{Token: r.ReadU32()}
	return c, r.Done()
}

// Register is MsgRegister's payload, transcribed field-for-field from
// msg_register.rs.
type Register struct {
	Username      String16
	CharacterName String16
	Password      TQPassword
	Mesh          uint16
	Class         uint16
	Token         uint32
}

func (r Register) Encode() []byte {
	w := NewWriter(String16Size*2 + TQPasswordSize + 2 + 2 + 4)
	w.WriteString16(r.Username)
	w.WriteString16(r.CharacterName)
	w.WriteTQPassword(r.Password)
	w.WriteU16(r.Mesh)
	w.WriteU16(r.Class)
	w.WriteU32(r.Token)
	return w.Bytes()
}

func DecodeRegister(b []byte) (Register, error) {
	rd := NewReader(b)
	reg := Register{
		Username:      rd.ReadString16(),
		CharacterName: rd.ReadString16(),
		Password:      rd.ReadTQPassword(),
		Mesh:          rd.ReadU16(),
		Class:         rd.ReadU16(),
		Token:         rd.ReadU32(),
	}
	return reg, rd.Done()
}

// TalkChannel selects which chat channel/system a MsgTalk targets.
type TalkChannel uint8

const (
	TalkChannelSystem TalkChannel = iota
	TalkChannelTalk
	TalkChannelRegister
)

// Well-known MsgTalk messages (spec.md §8 scenario 3).
const (
	TalkRegisterOK         = "ANSWER_OK"
	TalkRegisterNameTaken  = "NAME TAKEN"
	TalkRegisterInvalid    = "INVALID"
)

// Talk is MsgTalk's payload: a single system/chat line (spec.md §4.6
// "structured user-facing errors").
type Talk struct {
	Channel TalkChannel
	Message String16
}

func (t Talk) Encode() []byte {
	w := NewWriter(1 + String16Size)
	w.WriteU8(uint8(t.Channel))
	w.WriteString16(t.Message)
	return w.Bytes()
}

func DecodeTalk(b []byte) (Talk, error) {
	r := NewReader(b)
	t := Talk{Channel: TalkChannel(r.ReadU8()), Message: r.ReadString16()}
	return t, r.Done()
}

// Action is MsgAction's payload, transcribed field-for-field from
// msg_action.rs: a generic request/response envelope for question-answer
// exchanges like walk legality.
type Action struct {
	ClientTimestamp uint32
	CharacterID     uint32
	Param0          uint32
	Param1          uint16
	Param2          uint16
	Param3          uint16
	ActionType      uint16
}

func (a Action) Encode() []byte {
	w := NewWriter(20)
	w.WriteU32(a.ClientTimestamp)
	w.WriteU32(a.CharacterID)
	w.WriteU32(a.Param0)
	w.WriteU16(a.Param1)
	w.WriteU16(a.Param2)
	w.WriteU16(a.Param3)
	w.WriteU16(a.ActionType)
	return w.Bytes()
}

func DecodeAction(b []byte) (Action, error) {
	r := NewReader(b)
	a := Action{
		ClientTimestamp: r.ReadU32(),
		CharacterID:     r.ReadU32(),
		Param0:          r.ReadU32(),
		Param1:          r.ReadU16(),
		Param2:          r.ReadU16(),
		Param3:          r.ReadU16(),
		ActionType:      r.ReadU16(),
	}
	return a, r.Done()
}

// Spawn announces that a character appeared on the receiver's screen
// (spec.md §4.8 "load_surroundings"/"refresh").
type Spawn struct {
	CharacterID uint32
	Name        String16
	X, Y        uint16
	Direction   uint8
	Class       uint16
	Mesh        uint32
}

func (s Spawn) Encode() []byte {
	w := NewWriter(4 + String16Size + 2 + 2 + 1 + 2 + 4)
	w.WriteU32(s.CharacterID)
	w.WriteString16(s.Name)
	w.WriteU16(s.X)
	w.WriteU16(s.Y)
	w.WriteU8(s.Direction)
	w.WriteU16(s.Class)
	w.WriteU32(s.Mesh)
	return w.Bytes()
}

func DecodeSpawn(b []byte) (Spawn, error) {
	r := NewReader(b)
	s := Spawn{
		CharacterID: r.ReadU32(),
		Name:        r.ReadString16(),
		X:           r.ReadU16(),
		Y:           r.ReadU16(),
		Direction:   r.ReadU8(),
		Class:       r.ReadU16(),
		Mesh:        r.ReadU32(),
	}
	return s, r.Done()
}

// Remove announces that a character vanished from the receiver's screen.
type Remove struct {
	CharacterID uint32
}

func (r Remove) Encode() []byte {
	w := NewWriter(4)
	w.WriteU32(r.CharacterID)
	return w.Bytes()
}

func DecodeRemove(b []byte) (Remove, error) {
	rd := NewReader(b)
	r := Remove{CharacterID: rd.ReadU32()}
	return r, rd.Done()
}

// WalkBroadcast announces that a character already on the receiver's
// screen moved.
type WalkBroadcast struct {
	CharacterID uint32
	X, Y        uint16
	Direction   uint8
}

func (w WalkBroadcast) Encode() []byte {
	wr := NewWriter(7)
	wr.WriteU32(w.CharacterID)
	wr.WriteU16(w.X)
	wr.WriteU16(w.Y)
	wr.WriteU8(w.Direction)
	return wr.Bytes()
}

func DecodeWalkBroadcast(b []byte) (WalkBroadcast, error) {
	r := NewReader(b)
	w := WalkBroadcast{CharacterID: r.ReadU32(), X: r.ReadU16(), Y: r.ReadU16(), Direction: r.ReadU8()}
	return w, r.Done()
}

// Action type values, transcribed from msg_action.rs's ActionType enum.
const (
	ActionSetLocation      uint16 = 74
	ActionSetInventory     uint16 = 75
	ActionSetAssociates    uint16 = 76
	ActionSetProficiencies uint16 = 77
	ActionSetMagicSpells   uint16 = 78
	ActionSetDirection     uint16 = 79
	ActionSetAction        uint16 = 80
	ActionSetMapARGB       uint16 = 104
	ActionSetLoginComplete uint16 = 130
)

// Walk is MsgWalk's payload: one step request (spec.md §8 scenario 4).
type Walk struct {
	X, Y      uint16
	Direction uint8
}

func (w Walk) Encode() []byte {
	wr := NewWriter(5)
	wr.WriteU16(w.X)
	wr.WriteU16(w.Y)
	wr.WriteU8(w.Direction)
	return wr.Bytes()
}

func DecodeWalk(b []byte) (Walk, error) {
	r := NewReader(b)
	w := Walk{X: r.ReadU16(), Y: r.ReadU16(), Direction: r.ReadU8()}
	return w, r.Done()
}
