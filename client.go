package amino

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Admin operations accepted by the moderation endpoints.
const (
	adminOpDeleteMessage = 102
	adminOpHideItem      = 110
	adminOpHideItemValue = 9
)

// loginClientType identifies this client family to the auth endpoint.
const loginClientType = 100

// UserProfile is a user's profile, global or community-scoped.
type UserProfile struct {
	UID        string `json:"uid"`
	Nickname   string `json:"nickname"`
	Icon       string `json:"icon,omitempty"`
	Level      int    `json:"level,omitempty"`
	Reputation int    `json:"reputation,omitempty"`
	Role       int    `json:"role,omitempty"`
}

// Account is the authenticated account record returned at login.
type Account struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	CreatedTime string `json:"createdTime,omitempty"`
}

// Community is a tenant of the service with its own numeric id and API root.
type Community struct {
	NDCID        int64  `json:"ndcId"`
	Name         string `json:"name"`
	Endpoint     string `json:"endpoint,omitempty"`
	Tagline      string `json:"tagline,omitempty"`
	MembersCount int    `json:"membersCount,omitempty"`
	JoinType     int    `json:"joinType,omitempty"`
}

// Thread is a chat thread.
type Thread struct {
	ThreadID     string `json:"threadId"`
	Title        string `json:"title,omitempty"`
	Type         int    `json:"type,omitempty"`
	MembersCount int    `json:"membersCount,omitempty"`
}

// Member is a chat thread member.
type Member struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
	Icon     string `json:"icon,omitempty"`
}

// Message is a chat message as returned by the REST API.
type Message struct {
	MessageID   string  `json:"messageId"`
	ThreadID    string  `json:"threadId"`
	Content     string  `json:"content,omitempty"`
	Type        int     `json:"type,omitempty"`
	CreatedTime string  `json:"createdTime,omitempty"`
	Author      *Author `json:"author,omitempty"`
}

// WikiItem is a community wiki entry.
type WikiItem struct {
	ItemID  string  `json:"itemId"`
	Label   string  `json:"label,omitempty"`
	Content string  `json:"content,omitempty"`
	Author  *Author `json:"author,omitempty"`
}

// LinkInfo describes the object an invite or share link points to.
type LinkInfo struct {
	Path      string `json:"path,omitempty"`
	Extension struct {
		LinkInfo struct {
			NDCID      int64  `json:"ndcId"`
			ObjectID   string `json:"objectId"`
			ObjectType int    `json:"objectType"`
		} `json:"linkInfo"`
	} `json:"extensions"`
}

// --- Request and response envelopes ---

type loginRequest struct {
	Email      string `json:"email"`
	Secret     string `json:"secret"`
	ClientType int    `json:"clientType"`
	DeviceID   string `json:"deviceID"`
	Action     string `json:"action"`
	Timestamp  int64  `json:"timestamp"`
}

type loginResponse struct {
	APIResponse
	SID         string       `json:"sid"`
	UserProfile *UserProfile `json:"userProfile"`
	Account     *Account     `json:"account"`
}

type communityListResponse struct {
	APIResponse
	CommunityList []*Community `json:"communityList"`
}

type communityResponse struct {
	APIResponse
	Community *Community `json:"community"`
}

type userProfileResponse struct {
	APIResponse
	UserProfile *UserProfile `json:"userProfile"`
}

type threadListResponse struct {
	APIResponse
	ThreadList []*Thread `json:"threadList"`
}

type threadResponse struct {
	APIResponse
	Thread *Thread `json:"thread"`
}

type memberListResponse struct {
	APIResponse
	MemberList []*Member `json:"memberList"`
}

type messageResponse struct {
	APIResponse
	Message *Message `json:"message"`
}

type wikiListResponse struct {
	APIResponse
	ItemList []*WikiItem `json:"itemList"`
}

type wikiResponse struct {
	APIResponse
	Item *WikiItem `json:"item"`
}

type linkInfoResponse struct {
	APIResponse
	LinkInfoV2 *LinkInfo `json:"linkInfoV2"`
}

type sendMessageRequest struct {
	Type           int                `json:"type"`
	Content        string             `json:"content,omitempty"`
	ReplyMessageID string             `json:"replyMessageId,omitempty"`
	Extensions     *messageExtensions `json:"extensions,omitempty"`
	Timestamp      int64              `json:"timestamp"`
}

type messageExtensions struct {
	MentionedArray []mention `json:"mentionedArray"`
}

type mention struct {
	UID string `json:"uid"`
}

type adminOpRequest struct {
	AdminOpName  int     `json:"adminOpName"`
	AdminOpValue int     `json:"adminOpValue,omitempty"`
	AdminOpNote  *opNote `json:"adminOpNote,omitempty"`
	Timestamp    int64   `json:"timestamp,omitempty"`
}

type opNote struct {
	Content string `json:"content"`
}

// Client composes the request executor and the event session behind
// login, profile, and community-scoping convenience calls. It is safe for
// concurrent use by multiple goroutines.
type Client struct {
	cfg      clientConfig
	deviceID string

	mu      sync.RWMutex
	sid     string
	profile *UserProfile
	account *Account
	req     *Requester
	socket  *Socket
}

// New creates an unauthenticated client. The device identity is generated
// unless pinned with WithDeviceID or WithDeviceSeed.
func New(opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.proxy != "" && cfg.httpClient == nil {
		proxyURL, err := url.Parse(cfg.proxy)
		if err != nil {
			return nil, fmt.Errorf("amino: parse proxy url: %w", err)
		}
		cfg.httpClient = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	deviceID := cfg.deviceID
	if deviceID == "" {
		deviceID = GenerateDeviceID(cfg.deviceSeed)
	}

	c := &Client{
		cfg:      cfg,
		deviceID: deviceID,
	}
	c.req = c.newRequester("")

	return c, nil
}

func (c *Client) newRequester(sid string) *Requester {
	return NewRequester(c.deviceID, &RequesterOptions{
		SID:        sid,
		BaseURL:    c.cfg.baseURL,
		HTTPClient: c.cfg.httpClient,
		UserAgent:  c.cfg.userAgent,
		Logger:     c.cfg.logger,
	})
}

// DeviceID returns the client's device identity.
func (c *Client) DeviceID() string {
	return c.deviceID
}

// SID returns the current session token, empty before login.
func (c *Client) SID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sid
}

// Profile returns the authenticated user's profile, nil before login.
func (c *Client) Profile() *UserProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// Account returns the authenticated account, nil before password login.
func (c *Client) Account() *Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account
}

// api returns the requester for the current session.
func (c *Client) api() *Requester {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.req
}

// Login authenticates with email and password and stores the resulting
// session token for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string, opts ...CallOption) (*UserProfile, error) {
	body := loginRequest{
		Email:      email,
		Secret:     "0 " + password,
		ClientType: loginClientType,
		DeviceID:   c.deviceID,
		Action:     "normal",
		Timestamp:  time.Now().UnixMilli(),
	}

	opts = append(opts, WithContentType("application/json"))
	raw, err := c.api().Do(ctx, "/auth/login", body, opts...)
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: "/auth/login", Err: err}
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sid = resp.SID
	c.profile = resp.UserProfile
	c.account = resp.Account
	c.req = c.newRequester(resp.SID)
	c.mu.Unlock()

	return resp.UserProfile, nil
}

// LoginWithSession adopts an existing session token, re-hydrating the
// profile from the user id embedded in the token. A malformed token fails
// without any network traffic.
func (c *Client) LoginWithSession(ctx context.Context, sid string) (*UserProfile, error) {
	claims, err := DecodeSessionToken(sid)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sid = sid
	c.req = c.newRequester(sid)
	c.mu.Unlock()

	profile, err := c.UserProfile(ctx, claims.UID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.profile = profile
	c.mu.Unlock()

	return profile, nil
}

// Connect opens the event-stream session using the client's credentials.
func (c *Client) Connect(ctx context.Context, opts ...SocketOption) (*Socket, error) {
	opts = append([]SocketOption{WithSocketLogger(c.cfg.logger)}, opts...)

	s, err := ConnectSocket(ctx, c.deviceID, c.SID(), opts...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.socket = s
	c.mu.Unlock()

	return s, nil
}

// Socket returns the current event-stream session, nil before Connect.
func (c *Client) Socket() *Socket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.socket
}

// Community returns a view of the client scoped to the given community.
// The scope is carried by the returned value, not by the client, so
// concurrent scoped calls do not interfere.
func (c *Client) Community(ndcID int64) *CommunityClient {
	return &CommunityClient{client: c, ndcID: ndcID}
}

// Reply sends a reply to the given chat message, scoped to the community the
// message arrived from.
func (c *Client) Reply(ctx context.Context, msg *ChatMessage, text string, opts ...SendOption) (*Message, error) {
	api := c.api()
	if msg.NDCID != 0 {
		api = api.Scoped(msg.NDCID)
	}
	opts = append(opts, WithReplyTo(msg.MessageID))
	return sendMessage(ctx, api, msg.ThreadID, text, opts...)
}

// JoinedCommunities lists the communities the account has joined.
func (c *Client) JoinedCommunities(ctx context.Context, start, size int) ([]*Community, error) {
	path := fmt.Sprintf("/community/joined?v=1&start=%d&size=%d", start, size)
	raw, err := c.api().Do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var resp communityListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.CommunityList, resp.Err()
}

// UserProfile fetches a user's global profile.
func (c *Client) UserProfile(ctx context.Context, uid string) (*UserProfile, error) {
	return userProfile(ctx, c.api(), uid)
}

// LinkInfo resolves an invite or share link to the object it points to.
func (c *Client) LinkInfo(ctx context.Context, link string) (*LinkInfo, error) {
	path := "/link-resolution?q=" + url.QueryEscape(link)
	raw, err := c.api().Do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var resp linkInfoResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.LinkInfoV2, resp.Err()
}

// Threads lists the chat threads the account has joined, global scope.
func (c *Client) Threads(ctx context.Context, start, size int) ([]*Thread, error) {
	return threads(ctx, c.api(), start, size)
}

// Thread fetches one chat thread, global scope.
func (c *Client) Thread(ctx context.Context, threadID string) (*Thread, error) {
	return thread(ctx, c.api(), threadID)
}

// SendMessage sends a chat message to a thread, global scope.
func (c *Client) SendMessage(ctx context.Context, threadID, text string, opts ...SendOption) (*Message, error) {
	return sendMessage(ctx, c.api(), threadID, text, opts...)
}

// DeleteMessage deletes the client's own message from a thread.
func (c *Client) DeleteMessage(ctx context.Context, threadID, messageID string) error {
	return deleteMessage(ctx, c.api(), threadID, messageID)
}

// JoinThread joins the authenticated user to a chat thread.
func (c *Client) JoinThread(ctx context.Context, threadID string) error {
	return c.joinThread(ctx, c.api(), threadID)
}

// ThreadMembers lists the members of a chat thread, global scope.
func (c *Client) ThreadMembers(ctx context.Context, threadID string, start, size int) ([]*Member, error) {
	return threadMembers(ctx, c.api(), threadID, start, size)
}

func (c *Client) joinThread(ctx context.Context, api *Requester, threadID string) error {
	profile := c.Profile()
	if profile == nil {
		return ErrNotLoggedIn
	}
	path := fmt.Sprintf("/chat/thread/%s/member/%s", threadID, profile.UID)
	body := struct {
		Timestamp int64 `json:"timestamp"`
	}{Timestamp: time.Now().UnixMilli()}
	raw, err := api.Do(ctx, path, body, WithContentType("application/json"))
	if err != nil {
		return err
	}
	var resp APIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.Err()
}

// CommunityClient is a Client view bound to one community. Every call hits
// the community's API root.
type CommunityClient struct {
	client *Client
	ndcID  int64
}

// NDCID returns the community id this view is bound to.
func (cc *CommunityClient) NDCID() int64 {
	return cc.ndcID
}

func (cc *CommunityClient) api() *Requester {
	return cc.client.api().Scoped(cc.ndcID)
}

// Info fetches the community's metadata. The lookup goes through the global
// root with the community id folded into the path.
func (cc *CommunityClient) Info(ctx context.Context) (*Community, error) {
	path := fmt.Sprintf("-x%d/community/info", cc.ndcID)
	raw, err := cc.client.api().Do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var resp communityResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.Community, resp.Err()
}

// UserProfile fetches a user's profile within the community.
func (cc *CommunityClient) UserProfile(ctx context.Context, uid string) (*UserProfile, error) {
	return userProfile(ctx, cc.api(), uid)
}

// Threads lists the chat threads the account has joined in the community.
func (cc *CommunityClient) Threads(ctx context.Context, start, size int) ([]*Thread, error) {
	return threads(ctx, cc.api(), start, size)
}

// Thread fetches one chat thread in the community.
func (cc *CommunityClient) Thread(ctx context.Context, threadID string) (*Thread, error) {
	return thread(ctx, cc.api(), threadID)
}

// ThreadMembers lists the members of a chat thread in the community.
func (cc *CommunityClient) ThreadMembers(ctx context.Context, threadID string, start, size int) ([]*Member, error) {
	return threadMembers(ctx, cc.api(), threadID, start, size)
}

// JoinThread joins the authenticated user to a chat thread in the community.
func (cc *CommunityClient) JoinThread(ctx context.Context, threadID string) error {
	return cc.client.joinThread(ctx, cc.api(), threadID)
}

// SendMessage sends a chat message to a thread in the community.
func (cc *CommunityClient) SendMessage(ctx context.Context, threadID, text string, opts ...SendOption) (*Message, error) {
	return sendMessage(ctx, cc.api(), threadID, text, opts...)
}

// DeleteMessage deletes the client's own message from a thread in the
// community.
func (cc *CommunityClient) DeleteMessage(ctx context.Context, threadID, messageID string) error {
	return deleteMessage(ctx, cc.api(), threadID, messageID)
}

// DeleteMessageAsStaff removes any message via the moderation endpoint,
// recording the given reason.
func (cc *CommunityClient) DeleteMessageAsStaff(ctx context.Context, threadID, messageID, reason string) error {
	path := fmt.Sprintf("/chat/thread/%s/message/%s/admin", threadID, messageID)
	body := adminOpRequest{
		AdminOpName: adminOpDeleteMessage,
		AdminOpNote: &opNote{Content: reason},
		Timestamp:   time.Now().UnixMilli(),
	}
	return adminOp(ctx, cc.api(), path, body)
}

// UserWikis lists a user's wiki entries in the community.
func (cc *CommunityClient) UserWikis(ctx context.Context, uid string, start, size int) ([]*WikiItem, error) {
	path := fmt.Sprintf("/item?type=user-all&uid=%s&start=%d&size=%d&cv=1.2", uid, start, size)
	raw, err := cc.api().Do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var resp wikiListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.ItemList, resp.Err()
}

// WikiInfo fetches one wiki entry.
func (cc *CommunityClient) WikiInfo(ctx context.Context, itemID string) (*WikiItem, error) {
	path := "/item/" + itemID
	raw, err := cc.api().Do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var resp wikiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.Item, resp.Err()
}

// HideWiki hides a wiki entry via the moderation endpoint, recording the
// given reason.
func (cc *CommunityClient) HideWiki(ctx context.Context, itemID, reason string) error {
	path := fmt.Sprintf("/item/%s/admin", itemID)
	body := adminOpRequest{
		AdminOpName:  adminOpHideItem,
		AdminOpValue: adminOpHideItemValue,
		AdminOpNote:  &opNote{Content: reason},
	}
	return adminOp(ctx, cc.api(), path, body)
}

// --- Shared endpoint plumbing ---

func userProfile(ctx context.Context, api *Requester, uid string) (*UserProfile, error) {
	path := "/user-profile/" + uid
	raw, err := api.Do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var resp userProfileResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.UserProfile, resp.Err()
}

func threads(ctx context.Context, api *Requester, start, size int) ([]*Thread, error) {
	path := fmt.Sprintf("/chat/thread?type=joined-me&start=%d&size=%d", start, size)
	raw, err := api.Do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var resp threadListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.ThreadList, resp.Err()
}

func thread(ctx context.Context, api *Requester, threadID string) (*Thread, error) {
	path := "/chat/thread/" + threadID
	raw, err := api.Do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var resp threadResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.Thread, resp.Err()
}

func threadMembers(ctx context.Context, api *Requester, threadID string, start, size int) ([]*Member, error) {
	path := fmt.Sprintf("/chat/thread/%s/member?start=%d&size=%d&type=default&cv=1.2", threadID, start, size)
	raw, err := api.Do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var resp memberListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.MemberList, resp.Err()
}

func sendMessage(ctx context.Context, api *Requester, threadID, text string, opts ...SendOption) (*Message, error) {
	cfg := sendConfig{messageType: MessageTypeCommon}
	for _, opt := range opts {
		opt(&cfg)
	}

	body := sendMessageRequest{
		Type:           cfg.messageType,
		Content:        text,
		ReplyMessageID: cfg.replyTo,
		Timestamp:      time.Now().UnixMilli(),
	}
	if len(cfg.mentions) > 0 {
		ext := &messageExtensions{}
		for _, uid := range cfg.mentions {
			ext.MentionedArray = append(ext.MentionedArray, mention{UID: uid})
		}
		body.Extensions = ext
	}

	path := fmt.Sprintf("/chat/thread/%s/message", threadID)
	raw, err := api.Do(ctx, path, body, WithContentType("application/json"))
	if err != nil {
		return nil, err
	}
	var resp messageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.Message, resp.Err()
}

func deleteMessage(ctx context.Context, api *Requester, threadID, messageID string) error {
	path := fmt.Sprintf("/chat/thread/%s/message/%s", threadID, messageID)
	raw, err := api.Do(ctx, path, nil, WithMethod(http.MethodDelete))
	if err != nil {
		return err
	}
	var resp APIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.Err()
}

func adminOp(ctx context.Context, api *Requester, path string, body adminOpRequest) error {
	raw, err := api.Do(ctx, path, body, WithContentType("application/json"))
	if err != nil {
		return err
	}
	var resp APIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &RequestError{Op: "decode", Path: path, Err: err}
	}
	return resp.Err()
}
