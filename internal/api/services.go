package api

// Service accessors group Client methods by resource.
// Each service embeds *Client to avoid breaking existing call sites.

type ImagesService struct{ *Client }

type MetadataService struct{ *Client }

type ServerService struct{ *Client }

type UserService struct{ *Client }

func (c *Client) Images() ImagesService {
	return ImagesService{c}
}

func (c *Client) Metadata() MetadataService {
	return MetadataService{c}
}

func (c *Client) Server() ServerService {
	return ServerService{c}
}

func (c *Client) Users() UserService {
	return UserService{c}
}
